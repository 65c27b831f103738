package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryStreakCountsTrailingEntries(t *testing.T) {
	st := NewRunState("obj")
	st.SetPlan([]string{"A", "B"})
	st.History = []StepRecord{{Step: "A"}, {Step: "B"}, {Step: "A"}, {Step: "A"}}

	assert.Equal(t, 2, st.RetryStreak())

	st.Index = 1
	assert.Equal(t, 0, st.RetryStreak())

	st.Index = 2
	assert.Equal(t, 0, st.RetryStreak())
}

func TestApplyDecisions(t *testing.T) {
	st := NewRunState("obj")
	st.SetPlan([]string{"A", "B"})

	st.Apply(Retry{Forced: true})
	st.Apply(Retry{})
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 1, st.ForcedReplanMisses)

	st.Apply(Advance{})
	assert.Equal(t, 1, st.Index)
	assert.Zero(t, st.ForcedReplanMisses)

	st.Apply(Replan{})
	assert.Equal(t, 1, st.Index, "empty replan is ignored")

	st.Apply(Replan{Plan: []string{"C"}})
	assert.Equal(t, []string{"C"}, st.Plan)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 1, st.Replans)

	st.Apply(Complete{Response: "done"})
	assert.True(t, st.Finished())
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 1, st.Index)

	st.Apply(Exhausted{Response: "late"})
	assert.Equal(t, "done", st.FinalResponse(), "final response is set once")
	assert.Equal(t, StatusCompleted, st.Status)
}

func TestTranscript(t *testing.T) {
	st := NewRunState("obj")
	st.Append(StepRecord{Step: "a", Result: "1"})
	st.Append(StepRecord{Step: "b", Result: "2"})
	assert.Equal(t, "Step: a\nResult: 1\nStep: b\nResult: 2", st.Transcript())
}
