package engine

import "context"

type Hooks []Hook

func (hs Hooks) OnPlan(ctx context.Context, st *RunState) {
	for _, h := range hs {
		h.OnPlan(ctx, st)
	}
}
func (hs Hooks) OnStepStart(ctx context.Context, st *RunState, step string) {
	for _, h := range hs {
		h.OnStepStart(ctx, st, step)
	}
}
func (hs Hooks) OnToolCall(ctx context.Context, st *RunState, tool string, args map[string]any) {
	for _, h := range hs {
		h.OnToolCall(ctx, st, tool, args)
	}
}
func (hs Hooks) OnToolResult(ctx context.Context, st *RunState, tool string, result string, err error) {
	for _, h := range hs {
		h.OnToolResult(ctx, st, tool, result, err)
	}
}
func (hs Hooks) OnStepResult(ctx context.Context, st *RunState, res StepResult) {
	for _, h := range hs {
		h.OnStepResult(ctx, st, res)
	}
}
func (hs Hooks) OnCompress(ctx context.Context, st *RunState, entries int) {
	for _, h := range hs {
		h.OnCompress(ctx, st, entries)
	}
}
func (hs Hooks) OnDecision(ctx context.Context, st *RunState, d Decision) {
	for _, h := range hs {
		h.OnDecision(ctx, st, d)
	}
}
func (hs Hooks) OnDone(ctx context.Context, st *RunState) {
	for _, h := range hs {
		h.OnDone(ctx, st)
	}
}
