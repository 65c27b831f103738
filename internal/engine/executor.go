package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/planloop/internal/prompts"
	"go.uber.org/zap"
)

const (
	allStepsCompleted = "All steps completed"
	noToolResponse    = "Step processed without tools."
)

// executionSchema is the shape the model fills in for each step.
type executionSchema struct {
	Tool     string            `json:"tool"`
	Args     map[string]string `json:"args"`
	Response string            `json:"response"`
}

var executionExample = executionSchema{
	Tool:     "tool_name_or_null",
	Args:     map[string]string{"arg_name": "arg_value"},
	Response: "final_response_if_no_tool",
}

// Executor runs the current plan step, invoking at most one tool.
type Executor struct {
	structured *StructuredClient
	tools      ToolProvider
	compressor *Compressor
	prompts    *prompts.PromptRegistry
	toolLimit  int
	hooks      Hooks
	logger     *zap.Logger
}

// Execute compresses history if it has grown past the threshold, then runs
// the current step and appends exactly one record for it. When the plan is
// already finished it returns "All steps completed" without calling the model.
func (e *Executor) Execute(ctx context.Context, st *RunState) StepResult {
	if summary, ok := e.compressor.Compress(ctx, st.History); ok {
		entries := len(st.History)
		st.ResetHistory(summary)
		e.hooks.OnCompress(ctx, st, entries)
	}

	step, ok := st.CurrentStep()
	if !ok {
		return StepOK("", allStepsCompleted)
	}

	e.hooks.OnStepStart(ctx, st, step)
	res := e.run(ctx, st, step)
	st.Append(StepRecord{Step: step, Result: res.Text, Failed: res.Failed})
	e.hooks.OnStepResult(ctx, st, res)
	return res
}

func (e *Executor) run(ctx context.Context, st *RunState, step string) StepResult {
	catalog, err := json.MarshalIndent(e.tools.List(ctx, step, e.toolLimit), "", "  ")
	if err != nil {
		return StepFailed(step, fmt.Errorf("failed to encode tool catalog: %w", err))
	}

	summary := st.Summary
	if summary == "" {
		summary = "None"
	}
	history := FormatHistory(st.History)
	if history == "" {
		history = "None"
	}

	prompt := e.prompts.MustRender(prompts.ExecuteTemplate, map[string]string{
		"input":        st.Objective,
		"current_step": step,
		"summary":      summary,
		"history":      history,
		"tools":        string(catalog),
	})

	out, err := e.structured.GenerateStructured(ctx, prompt, executionExample, e.prompts.MustRender(prompts.ExecuteSystem, nil))
	if err != nil {
		e.logger.Warn("step generation failed", zap.String("step", step), zap.Error(err))
		return StepFailed(step, WrapWithPhase(err, st, PhaseExecute, "generate"))
	}

	if name := toolName(out["tool"]); name != "" {
		return e.invoke(ctx, st, step, name, toolArgs(out["args"]))
	}

	if response, ok := out["response"].(string); ok && response != "" {
		return StepOK(step, response)
	}
	return StepOK(step, noToolResponse)
}

func (e *Executor) invoke(ctx context.Context, st *RunState, step, name string, args map[string]any) StepResult {
	e.hooks.OnToolCall(ctx, st, name, args)
	result, err := e.tools.Invoke(ctx, name, args)
	e.hooks.OnToolResult(ctx, st, name, result, err)

	if err != nil {
		res := StepFailed(step, err)
		res.Tool = name
		return res
	}

	res := StepOK(step, fmt.Sprintf("Tool '%s' Output: %s", name, result))
	res.Tool = name
	return res
}

// toolName normalizes the model's tool choice; "" means no tool.
func toolName(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none":
		return ""
	}
	return s
}

func toolArgs(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
