package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetryClass
	}{
		{"nil", nil, RetryClassNonRetryable},
		{"cancelled", fmt.Errorf("chat: %w", context.Canceled), RetryClassNonRetryable},
		{"deadline", fmt.Errorf("chat: %w", context.DeadlineExceeded), RetryClassMaybe},
		{"net error", timeoutErr{}, RetryClassRetryable},
		{"untyped rate limit", errors.New("Rate limit reached for model"), RetryClassRetryable},
		{"untyped refused", errors.New("dial tcp: connection refused"), RetryClassRetryable},
		{"unknown", errors.New("something odd"), RetryClassNonRetryable},
		{"429", WrapLLMError(errors.New("slow down"), http.StatusTooManyRequests, ""), RetryClassRetryable},
		{"503", WrapLLMError(errors.New("down"), http.StatusServiceUnavailable, ""), RetryClassRetryable},
		{"401", WrapLLMError(errors.New("rate limit of keys"), http.StatusUnauthorized, ""), RetryClassNonRetryable},
		{"400", WrapLLMError(errors.New("bad request"), http.StatusBadRequest, ""), RetryClassNonRetryable},
		{"no status", WrapLLMError(errors.New("connection reset by peer"), 0, ""), RetryClassRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyLLMError(tt.err))
		})
	}
}

func TestWrapLLMError(t *testing.T) {
	assert.NoError(t, WrapLLMError(nil, http.StatusInternalServerError, ""))

	base := errors.New("too many requests")
	err := WrapLLMError(base, http.StatusTooManyRequests, "7")
	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.True(t, llmErr.RateLimited())
	assert.Equal(t, 7*time.Second, llmErr.RetryAfter)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "llm error (status 429): too many requests", err.Error())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 12*time.Second, parseRetryAfter("12", now))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3s", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter("", now))
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	assert.Equal(t, time.Millisecond, p.backoff(0, errors.New("503")))
	assert.Equal(t, 4*time.Millisecond, p.backoff(2, errors.New("503")))
	assert.Equal(t, 5*time.Millisecond, p.backoff(5, errors.New("503")))

	hinted := WrapLLMError(errors.New("429"), http.StatusTooManyRequests, "120")
	assert.Equal(t, 5*time.Millisecond, p.backoff(0, hinted))
	p.MaxDelay = time.Hour
	assert.Equal(t, 120*time.Second, p.backoff(0, hinted))

	p.Jitter = true
	d := p.backoff(1, errors.New("503"))
	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.LessOrEqual(t, d, 2*time.Millisecond+2*time.Millisecond/5+1)
}

// sequenceLLM fails with errs in order, then answers "ok".
type sequenceLLM struct {
	errs  []error
	calls int
}

func (s *sequenceLLM) Chat(context.Context, string, []ChatMessage, ChatOptions) (LLMResponse, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return LLMResponse{}, s.errs[s.calls-1]
	}
	return LLMResponse{Assistant: ChatMessage{Role: RoleAssistant, Content: "ok"}}, nil
}

func repeat(err error, n int) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = err
	}
	return out
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestChatGeneratorRetries(t *testing.T) {
	unavailable := WrapLLMError(errors.New("service unavailable"), http.StatusServiceUnavailable, "")

	t.Run("recovers after transient failures", func(t *testing.T) {
		llm := &sequenceLLM{errs: repeat(unavailable, 2)}
		gen := NewChatGenerator(llm, "m", ChatOptions{}, fastPolicy(3), nil)

		resp, err := gen.chat(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Assistant.Content)
		assert.Equal(t, 3, llm.calls)
	})

	t.Run("stops on non-retryable", func(t *testing.T) {
		llm := &sequenceLLM{errs: repeat(WrapLLMError(errors.New("bad key"), http.StatusUnauthorized, ""), 5)}
		_, err := NewChatGenerator(llm, "m", ChatOptions{}, fastPolicy(3), nil).chat(context.Background(), nil)

		require.Error(t, err)
		var exhausted *RetryExhaustedError
		assert.False(t, errors.As(err, &exhausted))
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		llm := &sequenceLLM{errs: repeat(unavailable, 10)}
		_, err := NewChatGenerator(llm, "m", ChatOptions{}, fastPolicy(2), nil).chat(context.Background(), nil)

		var exhausted *RetryExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.False(t, exhausted.Guarded)
		assert.Equal(t, 3, llm.calls)
	})

	t.Run("guards maybe class", func(t *testing.T) {
		llm := &sequenceLLM{errs: repeat(fmt.Errorf("chat: %w", context.DeadlineExceeded), 10)}
		_, err := NewChatGenerator(llm, "m", ChatOptions{}, fastPolicy(10), nil).chat(context.Background(), nil)

		var exhausted *RetryExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.True(t, exhausted.Guarded)
		assert.Equal(t, 3, llm.calls)
	})

	t.Run("cancelled while backing off", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		policy := fastPolicy(5)
		policy.InitialDelay = time.Hour
		policy.MaxDelay = time.Hour

		llm := &sequenceLLM{errs: repeat(unavailable, 10)}
		_, err := NewChatGenerator(llm, "m", ChatOptions{}, policy, nil).chat(ctx, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("failure becomes error text", func(t *testing.T) {
		llm := &sequenceLLM{errs: repeat(unavailable, 10)}
		out := NewChatGenerator(llm, "m", ChatOptions{}, fastPolicy(1), nil).Generate(context.Background(), "p", "")

		assert.True(t, IsGenerationFailure(out))
		assert.Contains(t, out, "gave up after 2 calls")
	})
}

func TestWrapWithPhase(t *testing.T) {
	assert.NoError(t, WrapWithPhase(nil, NewRunState("x"), PhaseExecute, "tool_invoke"))

	st := NewRunState("x")
	st.SetPlan([]string{"a", "b"})
	st.Index = 1
	base := errors.New("boom")
	err := WrapWithPhase(base, st, PhaseExecute, "tool_invoke")
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "[step=1 phase=execute op=tool_invoke] boom", err.Error())
}
