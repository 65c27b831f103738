package engine

import "fmt"

// Decision is the reflector's verdict after a step. The set of variants is
// closed: Retry, Replan, Advance, Complete and Exhausted.
type Decision interface {
	decision()
}

// Retry runs the current step again.
type Retry struct {
	Reason string
	// Forced is set when the model chose retry after being told to replan.
	Forced bool
}

// Replan replaces the plan and restarts at its first step. Plan is never empty.
type Replan struct {
	Plan   []string
	Reason string
}

// Advance moves to the next step. It is only issued when one remains.
type Advance struct{}

// Complete ends the run after the last step.
type Complete struct {
	Response string
}

// Exhausted ends the run because the loop stopped making progress.
type Exhausted struct {
	Step     string
	Response string
}

func (Retry) decision()     {}
func (Replan) decision()    {}
func (Advance) decision()   {}
func (Complete) decision()  {}
func (Exhausted) decision() {}

// DecisionName is a short label for logs and metrics.
func DecisionName(d Decision) string {
	switch d.(type) {
	case Retry:
		return "retry"
	case Replan:
		return "replan"
	case Advance:
		return "next"
	case Complete:
		return "complete"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("%T", d)
	}
}

// Apply moves the run according to d.
func (st *RunState) Apply(d Decision) {
	switch d := d.(type) {
	case Retry:
		if d.Forced {
			st.ForcedReplanMisses++
		}
	case Replan:
		if len(d.Plan) == 0 {
			return
		}
		st.SetPlan(d.Plan)
		st.Replans++
	case Advance:
		if st.Index < len(st.Plan) {
			st.Index++
		}
		st.ForcedReplanMisses = 0
	case Complete:
		st.Index = len(st.Plan)
		st.ForcedReplanMisses = 0
		st.finish(StatusCompleted, d.Response)
	case Exhausted:
		st.finish(StatusExhausted, d.Response)
	}
}
