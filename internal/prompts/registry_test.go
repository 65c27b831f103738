package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryRendersTemplates(t *testing.T) {
	r := NewDefaultRegistry()

	out, err := r.Render(PlanTemplate, map[string]string{
		"objective":  "Calculate 10 + 5",
		"tool_names": "[calculator]",
		"memories":   "None",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Objective: Calculate 10 + 5")
	assert.Contains(t, out, "[calculator]")
	assert.NotContains(t, out, "{{")

	assert.Equal(t, "You are a supervisor managing a task plan.", r.MustRender(ReflectSystem, nil))
}

func TestRenderIsSinglePass(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "t", Version: PromptV1, Content: "{{a}} and {{b}}"})

	out, err := r.Render("t", map[string]string{"a": "{{b}}", "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, "{{b}} and x", out)
}

func TestRenderAppendsFragments(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "t", Version: PromptV1, Content: "Result: {{result}}"})

	out, err := r.Render("t", map[string]string{"result": "ok"}, "Note: be brief.", "Step {{result}}")
	require.NoError(t, err)
	assert.Equal(t, "Result: ok\n\nNote: be brief.\n\nStep ok", out)

	b, err := NewPromptBuilder(r, "t", PromptV1)
	require.NoError(t, err)
	out, err = b.AddFragment("tail").SetVariable("result", "x").Build()
	require.NoError(t, err)
	assert.Equal(t, "Result: x\n\ntail", out)

	_, err = NewPromptBuilder(r, "t", "9.9.9")
	assert.Error(t, err)
}

func TestRenderUnknownPrompt(t *testing.T) {
	_, err := NewPromptRegistry().Render("missing", nil)
	assert.Error(t, err)
}

func TestGetLatestPrefersNonDeprecated(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "p", Version: PromptV1, Content: "v1"})
	r.Register(&Prompt{ID: "p", Version: "2.0.0", Content: "v2", Deprecated: true})

	p, err := r.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, "v1", p.Content)
	assert.Len(t, r.Versions("p"), 2)
}

func TestLoadTemplatesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("summary_template: |\n  Short: {{history}}\n"), 0600))

	r := NewDefaultRegistry()
	loaded, err := LoadTemplates(r, path)
	require.NoError(t, err)
	assert.Equal(t, []string{SummaryTemplate}, loaded)

	out, err := r.Render(SummaryTemplate, map[string]string{"history": "Step: a\nResult: b"})
	require.NoError(t, err)
	assert.Equal(t, "Short: Step: a\nResult: b\n", out)
}

func TestLoadTemplatesMissingFile(t *testing.T) {
	loaded, err := LoadTemplates(NewDefaultRegistry(), filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadTemplatesRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus_template: hi\n"), 0600))

	_, err := LoadTemplates(NewDefaultRegistry(), path)
	assert.Error(t, err)
}
