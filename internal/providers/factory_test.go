package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMClientDefaultsToLMStudio(t *testing.T) {
	client, model, err := NewLLMClient(config.LLMConfig{})
	require.NoError(t, err)
	assert.Equal(t, "local-model", model)

	oc, ok := client.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:1234/v1", oc.baseURL)
}

func TestNewLLMClientProviders(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LLMConfig
		wantModel string
		wantErr   string
	}{
		{"openai needs key", config.LLMConfig{Provider: "openai"}, "", "OPENAI_API_KEY not set"},
		{"openai", config.LLMConfig{Provider: "openai", APIKey: "k"}, "gpt-4o-mini", ""},
		{"anthropic", config.LLMConfig{Provider: "Anthropic", APIKey: "k", Model: "claude-x"}, "claude-x", ""},
		{"ollama keyless", config.LLMConfig{Provider: "ollama"}, "llama3.1", ""},
		{"unknown", config.LLMConfig{Provider: "nope"}, "", "unknown LLM provider: nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, model, err := NewLLMClient(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, model)
		})
	}
}

func TestNewLLMClientWrapsRateLimit(t *testing.T) {
	client, _, err := NewLLMClient(config.LLMConfig{Provider: "lmstudio", RequestsPerMinute: 30})
	require.NoError(t, err)
	_, ok := client.(*RateLimitedClient)
	assert.True(t, ok)
}

func TestExtractErrorMetadata(t *testing.T) {
	status, retryAfter := extractErrorMetadata(errors.New("error, status code: 429, Retry-After: 12"))
	assert.Equal(t, 429, status)
	assert.Equal(t, "12", retryAfter)

	status, retryAfter = extractErrorMetadata(errors.New("connection refused"))
	assert.Zero(t, status)
	assert.Empty(t, retryAfter)
}

type scriptedLLM struct {
	errs []error
	n    int
}

func (s *scriptedLLM) Chat(context.Context, string, []engine.ChatMessage, engine.ChatOptions) (engine.LLMResponse, error) {
	var err error
	if s.n < len(s.errs) {
		err = s.errs[s.n]
	}
	s.n++
	return engine.LLMResponse{}, err
}

func TestRateLimitedClientAdapts(t *testing.T) {
	rateLimited := engine.WrapLLMError(errors.New("429 too many requests"), 429, "")
	next := &scriptedLLM{errs: []error{rateLimited, rateLimited, nil}}

	client := NewRateLimitedClient(next, 6000).(*RateLimitedClient)
	ctx := context.Background()

	_, err := client.Chat(ctx, "m", nil, engine.ChatOptions{})
	require.Error(t, err)
	assert.InDelta(t, 3000, client.CurrentRPM(), 1e-6)

	_, _ = client.Chat(ctx, "m", nil, engine.ChatOptions{})
	assert.InDelta(t, 1500, client.CurrentRPM(), 1e-6)

	_, err = client.Chat(ctx, "m", nil, engine.ChatOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 1800, client.CurrentRPM(), 1e-6)
}

func TestRateLimitedClientDisabled(t *testing.T) {
	next := &scriptedLLM{}
	assert.Same(t, engine.LLMClient(next), NewRateLimitedClient(next, 0))
}
