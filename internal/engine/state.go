package engine

import (
	"strings"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusExhausted RunStatus = "exhausted"
)

// StepRecord is one executed step in the run history.
type StepRecord struct {
	Step   string `json:"step"`
	Result string `json:"result"`
	Failed bool   `json:"failed,omitempty"`
}

// RunState is the mutable state threaded through one run.
// Index always satisfies 0 <= Index <= len(Plan).
type RunState struct {
	ID        string
	Objective string
	Plan      []string
	Index     int
	History   []StepRecord
	Summary   string
	Status    RunStatus

	// Iterations counts execute/reflect rounds.
	Iterations int
	Replans    int
	// ForcedReplanMisses counts reflections that answered "retry" after the
	// forced-replan directive was issued for the current step. It lives here,
	// not in History, so compression cannot reset it.
	ForcedReplanMisses int

	response *string
}

// NewRunState starts a run for objective.
func NewRunState(objective string) *RunState {
	return &RunState{
		ID:        uuid.NewString(),
		Objective: objective,
		History:   []StepRecord{},
		Status:    StatusRunning,
	}
}

// SetPlan installs plan and rewinds to its first step.
func (st *RunState) SetPlan(plan []string) {
	st.Plan = append([]string(nil), plan...)
	st.Index = 0
	st.ForcedReplanMisses = 0
}

// CurrentStep returns the step at Index, if any.
func (st *RunState) CurrentStep() (string, bool) {
	if st.Index < 0 || st.Index >= len(st.Plan) {
		return "", false
	}
	return st.Plan[st.Index], true
}

// RetryStreak is the number of trailing history entries whose step equals
// the current step.
func (st *RunState) RetryStreak() int {
	step, ok := st.CurrentStep()
	if !ok {
		return 0
	}
	streak := 0
	for i := len(st.History) - 1; i >= 0; i-- {
		if st.History[i].Step != step {
			break
		}
		streak++
	}
	return streak
}

// Append records an executed step.
func (st *RunState) Append(rec StepRecord) {
	st.History = append(st.History, rec)
}

// ResetHistory folds the history into summary.
func (st *RunState) ResetHistory(summary string) {
	st.Summary = summary
	st.History = []StepRecord{}
}

// Transcript renders the history as "Step: X\nResult: Y" blocks joined by newlines.
func (st *RunState) Transcript() string {
	return FormatHistory(st.History)
}

// Finished reports whether the final response has been set.
func (st *RunState) Finished() bool {
	return st.response != nil
}

// FinalResponse returns the final response, or "" while the run is going.
func (st *RunState) FinalResponse() string {
	if st.response == nil {
		return ""
	}
	return *st.response
}

// finish sets the final response. Only the first call has any effect.
func (st *RunState) finish(status RunStatus, response string) {
	if st.response != nil {
		return
	}
	st.response = &response
	st.Status = status
}

// FormatHistory renders records as "Step: X\nResult: Y" blocks joined by newlines.
func FormatHistory(history []StepRecord) string {
	parts := make([]string, 0, len(history))
	for _, rec := range history {
		parts = append(parts, "Step: "+rec.Step+"\nResult: "+rec.Result)
	}
	return strings.Join(parts, "\n")
}
