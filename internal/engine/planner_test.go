package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "numbered",
			response: "1. Compute 10 + 5\n2. Summarize",
			want:     []string{"Compute 10 + 5", "Summarize"},
		},
		{
			name:     "bullets and prose",
			response: "Here is the plan:\n- Search docs\n* Write answer\nThanks!",
			want:     []string{"Search docs", "Write answer"},
		},
		{
			name:     "nested markers",
			response: "  1.2 - Fetch data  \n10) Done",
			want:     []string{"Fetch data", ") Done"},
		},
		{
			name:     "marker only lines dropped",
			response: "1.\n-\n2. Real step",
			want:     []string{"Real step"},
		},
		{
			name:     "no list falls back to raw response",
			response: "Just do it.",
			want:     []string{"Just do it."},
		},
		{
			name:     "empty response",
			response: "",
			want:     []string{""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePlan(tt.response))
		})
	}
}

func TestBuildPlanIncludesToolsAndMemories(t *testing.T) {
	model := newFakeModel()
	tools := NewToolRegistry(nil, nil)
	_ = tools.Register(context.Background(), addTool())

	agent := newTestAgent(t, model, tools, DefaultLoopConfig())
	agent.planner.memory = &fakeMemory{recall: []string{"Objective: add numbers"}}

	plan := agent.planner.BuildPlan(context.Background(), "Add 10 and 5")
	assert.Equal(t, []string{"Step one", "Step two", "Step three"}, plan)

	prompts := model.promptsFor(kindPlan)
	assert.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Objective: Add 10 and 5")
	assert.Contains(t, prompts[0], "[add]")
	assert.Contains(t, prompts[0], "- Objective: add numbers")
}
