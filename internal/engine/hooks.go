// engine/hooks.go
package engine

import "context"

// Hook observes a run. Hooks must not mutate the state they are handed.
type Hook interface {
	OnPlan(ctx context.Context, st *RunState)
	OnStepStart(ctx context.Context, st *RunState, step string)
	OnToolCall(ctx context.Context, st *RunState, tool string, args map[string]any)
	OnToolResult(ctx context.Context, st *RunState, tool string, result string, err error)
	OnStepResult(ctx context.Context, st *RunState, res StepResult)
	OnCompress(ctx context.Context, st *RunState, entries int)
	OnDecision(ctx context.Context, st *RunState, d Decision)
	OnDone(ctx context.Context, st *RunState)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnPlan(context.Context, *RunState)                                {}
func (NopHook) OnStepStart(context.Context, *RunState, string)                   {}
func (NopHook) OnToolCall(context.Context, *RunState, string, map[string]any)    {}
func (NopHook) OnToolResult(context.Context, *RunState, string, string, error)   {}
func (NopHook) OnStepResult(context.Context, *RunState, StepResult)              {}
func (NopHook) OnCompress(context.Context, *RunState, int)                       {}
func (NopHook) OnDecision(context.Context, *RunState, Decision)                  {}
func (NopHook) OnDone(context.Context, *RunState)                                {}
