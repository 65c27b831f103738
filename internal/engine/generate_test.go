package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	messages []ChatMessage
	opts     ChatOptions
	reply    string
	err      error
}

func (f *fakeLLM) Chat(_ context.Context, _ string, messages []ChatMessage, opts ChatOptions) (LLMResponse, error) {
	f.messages = messages
	f.opts = opts
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Assistant: ChatMessage{Role: RoleAssistant, Content: f.reply}, FinishReason: "stop"}, nil
}

func TestChatGeneratorSendsSystemThenUser(t *testing.T) {
	llm := &fakeLLM{reply: "hello"}
	gen := NewChatGenerator(llm, "m", ChatOptions{Temperature: 0.7}, DefaultLLMRetryPolicy(), nil)

	assert.Equal(t, "hello", gen.Generate(context.Background(), "prompt", "system"))
	require.Len(t, llm.messages, 2)
	assert.Equal(t, ChatMessage{Role: RoleSystem, Content: "system"}, llm.messages[0])
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "prompt"}, llm.messages[1])
	assert.InDelta(t, 0.7, llm.opts.Temperature, 1e-6)
}

func TestChatGeneratorOmitsEmptySystem(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	NewChatGenerator(llm, "m", ChatOptions{}, DefaultLLMRetryPolicy(), nil).Generate(context.Background(), "prompt", "")
	require.Len(t, llm.messages, 1)
	assert.Equal(t, RoleUser, llm.messages[0].Role)
}

func TestChatGeneratorReturnsErrorText(t *testing.T) {
	// Unclassified errors are not retried.
	llm := &fakeLLM{err: errors.New("boom")}
	out := NewChatGenerator(llm, "m", ChatOptions{}, DefaultLLMRetryPolicy(), nil).Generate(context.Background(), "p", "")

	assert.Equal(t, "Error generating response: boom", out)
	assert.True(t, IsGenerationFailure(out))
}
