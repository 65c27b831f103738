package providers

import (
	"context"
	"errors"
	"sync"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"golang.org/x/time/rate"
)

// RateLimitedClient wraps an engine.LLMClient with a requests-per-minute
// budget. The budget halves when the provider reports a rate limit and
// recovers by 5% of the configured ceiling after each successful call.
type RateLimitedClient struct {
	next engine.LLMClient

	mu         sync.Mutex
	limiter    *rate.Limiter
	currentRPM float64
	minRPM     float64
	maxRPM     float64
}

// NewRateLimitedClient wraps next. rpm <= 0 returns next unchanged.
func NewRateLimitedClient(next engine.LLMClient, rpm int) engine.LLMClient {
	if rpm <= 0 || next == nil {
		return next
	}
	maxRPM := float64(rpm)
	minRPM := maxRPM * 0.1
	if minRPM < 1 {
		minRPM = 1
	}
	return &RateLimitedClient{
		next:       next,
		limiter:    rate.NewLimiter(rate.Limit(maxRPM/60.0), rpm),
		currentRPM: maxRPM,
		minRPM:     minRPM,
		maxRPM:     maxRPM,
	}
}

// Chat waits for budget, then forwards the call.
func (c *RateLimitedClient) Chat(ctx context.Context, model string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return engine.LLMResponse{}, err
	}
	resp, err := c.next.Chat(ctx, model, messages, opts)
	c.observe(err)
	return resp, err
}

// CurrentRPM reports the budget currently enforced.
func (c *RateLimitedClient) CurrentRPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRPM
}

func (c *RateLimitedClient) observe(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.currentRPM
	var llmErr *engine.LLMError
	switch {
	case err == nil:
		next += c.maxRPM * 0.05
		if next > c.maxRPM {
			next = c.maxRPM
		}
	case errors.As(err, &llmErr) && llmErr.RateLimited():
		next *= 0.5
		if next < c.minRPM {
			next = c.minRPM
		}
	default:
		return
	}

	if next == c.currentRPM {
		return
	}
	c.currentRPM = next
	c.limiter.SetLimit(rate.Limit(next / 60.0))
}
