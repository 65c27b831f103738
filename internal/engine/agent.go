package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Agent runs the plan, execute and reflect loop for one objective at a time.
type Agent struct {
	config    LoopConfig
	planner   *Planner
	executor  *Executor
	reflector *Reflector
	memory    MemoryStore
	context   ContextStore
	hooks     Hooks
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Run drives objective to a final response. The returned state always has its
// final response set unless ctx was cancelled, in which case the error is
// returned together with the partial state.
func (a *Agent) Run(ctx context.Context, objective string) (*RunState, error) {
	st := NewRunState(objective)

	ctx, span := a.tracer.Start(ctx, "planloop.run", trace.WithAttributes(
		attribute.String("run.id", st.ID),
		attribute.String("run.objective", objective),
	))
	defer span.End()

	a.logger.Info("starting run", zap.String("run", st.ID), zap.String("objective", objective))
	a.remember(ctx, "Objective: "+objective, MemoryKindGoal)
	a.putContext(ctx, ContextKeyRunID, st.ID)
	a.putContext(ctx, ContextKeyObjective, objective)

	a.plan(ctx, st)

	for !st.Finished() {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return st, fmt.Errorf("run cancelled: %w", err)
		}

		if st.Iterations >= a.config.MaxIterations {
			step, _ := st.CurrentStep()
			d := Exhausted{
				Step: step,
				Response: fmt.Sprintf("Step exhausted: iteration limit of %d reached.\nSummary:\n%s",
					a.config.MaxIterations, st.Transcript()),
			}
			st.Apply(d)
			a.hooks.OnDecision(ctx, st, d)
			break
		}
		st.Iterations++

		res := a.execute(ctx, st)
		d := a.reflect(ctx, st, res)
		if replan, ok := d.(Replan); ok {
			a.remember(ctx, "Plan: "+formatPlan(replan.Plan), MemoryKindPlan)
			a.putContext(ctx, ContextKeyPlan, formatPlan(replan.Plan))
		}
		st.Apply(d)
		a.hooks.OnDecision(ctx, st, d)
		a.putContext(ctx, ContextKeyLastDecision, DecisionName(d))
	}

	a.remember(ctx, "Result: "+st.FinalResponse(), MemoryKindResult)
	span.SetAttributes(
		attribute.String("run.status", string(st.Status)),
		attribute.Int("run.iterations", st.Iterations),
	)
	a.hooks.OnDone(ctx, st)
	return st, nil
}

func (a *Agent) plan(ctx context.Context, st *RunState) {
	ctx, span := a.tracer.Start(ctx, "planloop.plan")
	defer span.End()

	st.SetPlan(a.planner.BuildPlan(ctx, st.Objective))
	span.SetAttributes(attribute.Int("plan.steps", len(st.Plan)))

	a.remember(ctx, "Plan: "+formatPlan(st.Plan), MemoryKindPlan)
	a.putContext(ctx, ContextKeyPlan, formatPlan(st.Plan))
	a.hooks.OnPlan(ctx, st)
}

func (a *Agent) execute(ctx context.Context, st *RunState) StepResult {
	ctx, span := a.tracer.Start(ctx, "planloop.execute", trace.WithAttributes(attribute.Int("step.index", st.Index)))
	defer span.End()

	res := a.executor.Execute(ctx, st)
	if res.Tool != "" {
		span.SetAttributes(attribute.String("step.tool", res.Tool))
	}
	if res.Failed {
		span.SetStatus(codes.Error, res.Text)
	}
	return res
}

func (a *Agent) reflect(ctx context.Context, st *RunState, res StepResult) Decision {
	ctx, span := a.tracer.Start(ctx, "planloop.reflect")
	defer span.End()

	d := a.reflector.Reflect(ctx, st, res)
	span.SetAttributes(attribute.String("decision", DecisionName(d)))
	return d
}

// remember writes to long-term memory. Memory is best effort.
func (a *Agent) remember(ctx context.Context, content, kind string) {
	if a.memory == nil {
		return
	}
	if _, err := a.memory.Add(ctx, content, map[string]string{"type": kind}); err != nil {
		a.logger.Warn("failed to store memory", zap.String("kind", kind), zap.Error(err))
	}
}

func (a *Agent) putContext(ctx context.Context, key, value string) {
	if a.context == nil {
		return
	}
	if err := a.context.Put(ctx, key, value); err != nil {
		a.logger.Warn("failed to update context store", zap.String("key", key), zap.Error(err))
	}
}

func formatPlan(plan []string) string {
	b, err := json.Marshal(plan)
	if err != nil {
		return fmt.Sprint(plan)
	}
	return string(b)
}
