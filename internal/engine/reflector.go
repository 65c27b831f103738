package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ChamsBouzaiene/planloop/internal/prompts"
	"go.uber.org/zap"
)

const completionBanner = "Task Completed.\nSummary:\n"

// reflectionSchema is the shape of the supervisor's verdict.
type reflectionSchema struct {
	Action  string   `json:"action"`
	Reason  string   `json:"reason"`
	NewPlan []string `json:"new_plan"`
}

var reflectionExample = reflectionSchema{
	Action:  "retry | replan | next",
	Reason:  "explanation",
	NewPlan: []string{"step1", "step2"},
}

// Reflector decides what happens after each step.
type Reflector struct {
	structured       *StructuredClient
	prompts          *prompts.PromptRegistry
	forceReplanAfter int
	maxForcedReplans int
	logger           *zap.Logger
}

// Reflect returns the decision for the step just executed. The model is only
// consulted when the step failed or has been run more than once in a row;
// otherwise, and whenever the model's answer is unusable, the run advances.
func (r *Reflector) Reflect(ctx context.Context, st *RunState, res StepResult) Decision {
	step, ok := st.CurrentStep()
	if !ok {
		return Complete{Response: completionBanner + st.Transcript()}
	}

	streak := st.RetryStreak()
	if res.Failed || streak > 1 {
		if d := r.escalate(ctx, st, res, step, streak); d != nil {
			return d
		}
	}
	return r.advance(st)
}

func (r *Reflector) escalate(ctx context.Context, st *RunState, res StepResult, step string, streak int) Decision {
	forced := streak >= r.forceReplanAfter
	var directives []string
	if forced {
		directives = append(directives, fmt.Sprintf("CRITICAL: You have retried this step %d times. You MUST choose 'replan' and provide a simplified or alternative plan.", r.forceReplanAfter))
	}

	prompt := r.prompts.MustRender(prompts.ReflectTemplate, map[string]string{
		"plan":   formatPlan(st.Plan),
		"index":  strconv.Itoa(st.Index),
		"result": res.Text,
	}, directives...)

	out, err := r.structured.GenerateStructured(ctx, prompt, reflectionExample, r.prompts.MustRender(prompts.ReflectSystem, nil))
	if err != nil {
		r.logger.Warn("reflection failed, advancing", zap.Error(WrapWithPhase(err, st, PhaseReflect, "generate")))
		return nil
	}

	action, _ := out["action"].(string)
	reason, _ := out["reason"].(string)

	switch strings.ToLower(strings.TrimSpace(action)) {
	case "retry":
		if !forced {
			return Retry{Reason: reason}
		}
		if st.ForcedReplanMisses+1 >= r.maxForcedReplans {
			return Exhausted{
				Step: step,
				Response: fmt.Sprintf("Step exhausted: %q was retried %d times without a replan.\nSummary:\n%s",
					step, streak, st.Transcript()),
			}
		}
		return Retry{Reason: reason, Forced: true}
	case "replan":
		if plan := stringList(out["new_plan"]); len(plan) > 0 {
			return Replan{Plan: plan, Reason: reason}
		}
		r.logger.Warn("replan requested without a new plan, advancing")
	case "next":
	default:
		r.logger.Warn("unknown reflection action, advancing", zap.String("action", action))
	}
	return nil
}

// advance moves to the next step, or completes the run after the last one.
func (r *Reflector) advance(st *RunState) Decision {
	if st.Index+1 >= len(st.Plan) {
		return Complete{Response: completionBanner + st.Transcript()}
	}
	return Advance{}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
