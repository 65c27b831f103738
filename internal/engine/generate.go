package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Generator is the free-text generation contract used by the loop.
// Failures are reported as text beginning with "Error", never as a Go error.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt, system string) string

func (f GeneratorFunc) Generate(ctx context.Context, prompt, system string) string {
	return f(ctx, prompt, system)
}

// IsGenerationFailure reports whether text is a failure produced by a Generator.
func IsGenerationFailure(text string) bool {
	return strings.HasPrefix(text, "Error")
}

// ChatGenerator adapts an LLMClient to Generator. Provider errors are retried
// according to the policy and the last one is returned as error text.
type ChatGenerator struct {
	llm    LLMClient
	model  string
	opts   ChatOptions
	policy RetryPolicy
	logger *zap.Logger
}

// NewChatGenerator creates a Generator backed by llm.
func NewChatGenerator(llm LLMClient, model string, opts ChatOptions, policy RetryPolicy, logger *zap.Logger) *ChatGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatGenerator{
		llm:    llm,
		model:  model,
		opts:   opts,
		policy: policy,
		logger: logger,
	}
}

// Generate sends the prompt (and optional system prompt) as one chat turn.
func (g *ChatGenerator) Generate(ctx context.Context, prompt, system string) string {
	messages := make([]ChatMessage, 0, 2)
	if system != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: system})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: prompt})

	g.logger.Debug("llm request", zap.String("model", g.model), zap.Int("prompt_chars", len(prompt)))

	resp, err := g.chat(ctx, messages)
	if err != nil {
		g.logger.Error("llm generation failed", zap.Error(err))
		return fmt.Sprintf("Error generating response: %v", err)
	}

	g.logger.Debug("llm response",
		zap.String("finish", resp.FinishReason),
		zap.Int("total_tokens", resp.Usage.Total))
	return resp.Assistant.Content
}

// maxGuardedRetries caps retries for failures classified RetryClassMaybe.
const maxGuardedRetries = 2

// chat calls the model, retrying failures ClassifyLLMError allows.
func (g *ChatGenerator) chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := g.llm.Chat(ctx, g.model, messages, g.opts)
		if err == nil {
			return resp, nil
		}

		class := ClassifyLLMError(err)
		switch {
		case class == RetryClassNonRetryable:
			return LLMResponse{}, err
		case class == RetryClassMaybe && attempt >= maxGuardedRetries:
			return LLMResponse{}, &RetryExhaustedError{Err: err, Attempts: attempt + 1, Guarded: true}
		case attempt >= g.policy.MaxRetries:
			return LLMResponse{}, &RetryExhaustedError{Err: err, Attempts: attempt + 1}
		}

		wait := g.policy.backoff(attempt, err)
		g.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", g.policy.MaxRetries),
			zap.Duration("delay", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return LLMResponse{}, fmt.Errorf("generation cancelled while backing off: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
