// engine/hook_logger.go
package engine

import (
	"context"

	"go.uber.org/zap"
)

// LoggerHook writes run progress to a zap logger.
type LoggerHook struct{ L *zap.Logger }

func (h LoggerHook) OnPlan(_ context.Context, st *RunState) {
	h.L.Info("plan ready", zap.String("run", st.ID), zap.Int("steps", len(st.Plan)))
}
func (h LoggerHook) OnStepStart(_ context.Context, st *RunState, step string) {
	h.L.Info("executing step",
		zap.Int("index", st.Index),
		zap.Int("of", len(st.Plan)),
		zap.String("step", step))
}
func (h LoggerHook) OnToolCall(_ context.Context, _ *RunState, tool string, args map[string]any) {
	h.L.Info("tool →", zap.String("tool", tool), zap.Any("args", args))
}
func (h LoggerHook) OnToolResult(_ context.Context, _ *RunState, tool string, result string, err error) {
	if err != nil {
		h.L.Warn("tool error", zap.String("tool", tool), zap.Error(err))
		return
	}
	h.L.Debug("tool result", zap.String("tool", tool), zap.String("result", preview(result, 200)))
}
func (h LoggerHook) OnStepResult(_ context.Context, _ *RunState, res StepResult) {
	if res.Failed {
		h.L.Warn("step failed", zap.String("step", res.Step), zap.String("result", preview(res.Text, 200)))
		return
	}
	h.L.Info("step done", zap.String("result", preview(res.Text, 100)))
}
func (h LoggerHook) OnCompress(_ context.Context, _ *RunState, entries int) {
	h.L.Info("history compressed", zap.Int("entries", entries))
}
func (h LoggerHook) OnDecision(_ context.Context, st *RunState, d Decision) {
	fields := []zap.Field{zap.String("decision", DecisionName(d)), zap.Int("index", st.Index)}
	switch d := d.(type) {
	case Retry:
		fields = append(fields, zap.String("reason", d.Reason), zap.Bool("forced", d.Forced))
	case Replan:
		fields = append(fields, zap.String("reason", d.Reason), zap.Strings("plan", d.Plan))
	case Exhausted:
		fields = append(fields, zap.String("step", d.Step))
	}
	h.L.Info("reflection", fields...)
}
func (h LoggerHook) OnDone(_ context.Context, st *RunState) {
	h.L.Info("done",
		zap.String("run", st.ID),
		zap.String("status", string(st.Status)),
		zap.Int("iterations", st.Iterations),
		zap.Int("replans", st.Replans))
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
