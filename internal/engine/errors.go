package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryClass tells ChatGenerator whether a provider failure is worth another call.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"
	RetryClassMaybe        RetryClass = "maybe" // at most maxGuardedRetries more calls
	RetryClassNonRetryable RetryClass = "non_retryable"
)

// LLMError is a provider failure annotated with the HTTP status and
// Retry-After hint the provider reported, if any.
type LLMError struct {
	Err        error
	Class      RetryClass
	HTTPStatus int
	RetryAfter time.Duration
}

func (e *LLMError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("llm error (status %d): %v", e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("llm error: %v", e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider rejected the call with 429.
func (e *LLMError) RateLimited() bool { return e.HTTPStatus == http.StatusTooManyRequests }

// WrapLLMError annotates err with the status and Retry-After value extracted
// by a provider client. retryAfter may be seconds or an HTTP date.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}
	class := classifyStatus(httpStatus)
	if httpStatus == 0 {
		class = ClassifyLLMError(err)
	}
	return &LLMError{
		Err:        err,
		Class:      class,
		HTTPStatus: httpStatus,
		RetryAfter: parseRetryAfter(retryAfter, time.Now()),
	}
}

// ClassifyLLMError decides whether a failed chat call may be retried. Typed
// errors are checked first; message matching only covers untyped transport
// errors from the SDKs.
func ClassifyLLMError(err error) RetryClass {
	if err == nil || errors.Is(err, context.Canceled) {
		return RetryClassNonRetryable
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return RetryClassMaybe
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return RetryClassRetryable
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "connection reset", "connection refused", "no such host", "eof"} {
		if strings.Contains(msg, pattern) {
			return RetryClassRetryable
		}
	}
	return RetryClassNonRetryable
}

func classifyStatus(status int) RetryClass {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return RetryClassRetryable
	}
	return RetryClassNonRetryable
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSuffix(v, "s")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// retryAfterHint returns the provider's Retry-After hint carried by err.
func retryAfterHint(err error) time.Duration {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return 0
}

// RetryExhaustedError is returned by ChatGenerator when every allowed call failed.
type RetryExhaustedError struct {
	Err      error
	Attempts int
	Guarded  bool // stopped early because the failure was only maybe retryable
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d calls: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// ToolValidationError indicates that tool arguments failed JSON schema validation.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("tool %s validation failed: %s", e.ToolName, strings.Join(e.Errors, "; "))
}

// GenerationFormatError indicates that structured generation never produced
// parseable JSON within the allowed attempts.
type GenerationFormatError struct {
	Attempts   int
	LastOutput string
	Err        error // last parse error
}

func (e *GenerationFormatError) Error() string {
	return fmt.Sprintf("failed to generate valid JSON after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationFormatError) Unwrap() error { return e.Err }

// IsGenerationFormatError checks if an error is a GenerationFormatError.
func IsGenerationFormatError(err error) bool {
	var formatErr *GenerationFormatError
	return errors.As(err, &formatErr)
}

// ToolNotFoundError is returned when a tool name is not registered.
// Its message is the text contract of the registry: "Tool <name> not found."
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Tool %s not found.", e.Name)
}

// ToolExecutionError wraps a failure raised by a tool's Invoke, including a
// recovered panic.
type ToolExecutionError struct {
	ToolName string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.ToolName, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// PhaseError records where in the loop an error happened.
type PhaseError struct {
	Err       error
	StepIndex int
	Phase     Phase
	Operation string // "generate", "tool_invoke", "compress", ...
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("[step=%d phase=%s op=%s] %v", e.StepIndex, e.Phase, e.Operation, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// WrapWithPhase tags err with the current step index of st.
func WrapWithPhase(err error, st *RunState, phase Phase, operation string) error {
	if err == nil {
		return nil
	}
	return &PhaseError{
		Err:       err,
		StepIndex: st.Index,
		Phase:     phase,
		Operation: operation,
	}
}
