package providers

import (
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/ChamsBouzaiene/planloop/internal/engine"
)

// providerDefaults describes an OpenAI-compatible backend.
type providerDefaults struct {
	model      string
	baseURL    string
	apiKey     string // used when none is configured; empty means a key is required
	compatible bool   // speaks the OpenAI chat API
}

var knownProviders = map[string]providerDefaults{
	"openai":    {model: "gpt-4o-mini", compatible: true},
	"anthropic": {model: "claude-3-sonnet-20240229"},
	"lmstudio":  {model: "local-model", baseURL: "http://127.0.0.1:1234/v1", apiKey: "lm-studio", compatible: true},
	"ollama":    {model: "llama3.1", baseURL: "http://localhost:11434/v1", apiKey: "ollama", compatible: true},
	"kimi":      {model: "kimi-k2-250711", baseURL: "https://ark.ap-southeast.bytepluses.com/api/v3", compatible: true},
	"gemini":    {model: "gemini-1.5-flash", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", compatible: true},
	"glm":       {model: "glm-4-plus", baseURL: "https://open.bigmodel.cn/api/paas/v4", compatible: true},
	"minimax":   {model: "abab6.5s-chat", baseURL: "https://api.minimax.chat/v1", compatible: true},
	"deepseek":  {model: "deepseek-chat", baseURL: "https://api.deepseek.com/v1", compatible: true},
	"groq":      {model: "llama-3.1-70b-versatile", baseURL: "https://api.groq.com/openai/v1", compatible: true},
}

// NewLLMClient creates an engine.LLMClient for cfg.Provider and returns it
// with the resolved model name. Missing model, base URL and key fall back to
// the provider's defaults. A positive RequestsPerMinute adds rate limiting.
func NewLLMClient(cfg config.LLMConfig) (engine.LLMClient, string, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = "lmstudio"
	}

	def, ok := knownProviders[provider]
	if !ok {
		return nil, "", fmt.Errorf("unknown LLM provider: %s (supported: %s)", cfg.Provider, strings.Join(SupportedProviders(), ", "))
	}

	model := firstNonEmpty(cfg.Model, def.model)
	baseURL := firstNonEmpty(cfg.BaseURL, def.baseURL)
	apiKey := firstNonEmpty(cfg.APIKey, def.apiKey)
	if apiKey == "" {
		return nil, "", fmt.Errorf("%s_API_KEY not set", strings.ToUpper(provider))
	}

	var client engine.LLMClient
	var err error
	if def.compatible {
		client, err = NewOpenAIClient(apiKey, model, baseURL)
	} else {
		client, err = NewAnthropicClient(apiKey, model, baseURL)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	return NewRateLimitedClient(client, cfg.RequestsPerMinute), model, nil
}

// SupportedProviders lists provider names in a stable order.
func SupportedProviders() []string {
	return []string{"openai", "anthropic", "lmstudio", "ollama", "kimi", "gemini", "glm", "minimax", "deepseek", "groq"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
