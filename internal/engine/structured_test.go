package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Action string `json:"action"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Sure! Here it is: {\"a\":{\"b\":2}} hope that helps", `{"a":{"b":2}}`},
		{"no object", "not json", "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}

func TestGenerateStructuredParsesFencedJSON(t *testing.T) {
	var gotSystem string
	gen := GeneratorFunc(func(_ context.Context, _, system string) string {
		gotSystem = system
		return "```json\n{\"action\": \"next\"}\n```"
	})

	out, err := NewStructuredClient(gen, 3, nil).GenerateStructured(context.Background(), "p", sample{Action: "retry"}, "You are a supervisor.")
	require.NoError(t, err)
	assert.Equal(t, "next", out["action"])

	assert.True(t, strings.HasPrefix(gotSystem, "You are a supervisor.\n"))
	assert.Contains(t, gotSystem, `"action": "retry"`)
	assert.Contains(t, gotSystem, "VALID JSON")
}

func TestGenerateStructuredRepairsFromOriginalPrompt(t *testing.T) {
	var prompts []string
	gen := GeneratorFunc(func(_ context.Context, prompt, _ string) string {
		prompts = append(prompts, prompt)
		if len(prompts) < 3 {
			return "oops"
		}
		return `{"action": "retry"}`
	})

	out, err := NewStructuredClient(gen, 3, nil).GenerateStructured(context.Background(), "original", sample{}, "")
	require.NoError(t, err)
	assert.Equal(t, "retry", out["action"])

	require.Len(t, prompts, 3)
	assert.Equal(t, "original", prompts[0])
	for _, p := range prompts[1:] {
		assert.True(t, strings.HasPrefix(p, "original\n\nError: Previous output was not valid JSON. \nOutput: oops\nError: "))
		assert.True(t, strings.HasSuffix(p, "\nPlease correct it."))
		// Repairs never stack on each other.
		assert.Equal(t, 1, strings.Count(p, "Previous output"))
	}
}

func TestGenerateStructuredGivesUp(t *testing.T) {
	calls := 0
	gen := GeneratorFunc(func(context.Context, string, string) string {
		calls++
		return "still not json"
	})

	_, err := NewStructuredClient(gen, 3, nil).GenerateStructured(context.Background(), "p", sample{}, "")
	require.Error(t, err)
	assert.True(t, IsGenerationFormatError(err))
	assert.Equal(t, 3, calls)

	var formatErr *GenerationFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "still not json", formatErr.LastOutput)
}

func TestGenerateStructuredRejectsNull(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string, string) string { return "null" })

	_, err := NewStructuredClient(gen, 1, nil).GenerateStructured(context.Background(), "p", sample{}, "")
	assert.True(t, IsGenerationFormatError(err))
}

func TestGenerateStructuredStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := GeneratorFunc(func(context.Context, string, string) string {
		t.Fatal("generator should not be called")
		return ""
	})
	_, err := NewStructuredClient(gen, 3, nil).GenerateStructured(ctx, "p", sample{}, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsGenerationFormatError(err))
}
