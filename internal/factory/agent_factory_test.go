package factory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scripted answers plan, execute and reflect prompts by their system prompt.
func scripted() engine.Generator {
	return engine.GeneratorFunc(func(_ context.Context, prompt, system string) string {
		switch {
		case strings.Contains(system, "plans tasks"):
			return "1. Calculate 10 + 5"
		case strings.Contains(system, "executes tasks"):
			return `{"tool": "calculator", "args": {"expression": "10 + 5"}, "response": ""}`
		case strings.Contains(system, "supervisor"):
			return `{"action": "next", "reason": "ok", "new_plan": []}`
		}
		return "Adding Numbers"
	})
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Skills.Dir = filepath.Join(dir, "skills")
	cfg.Runs.Dir = filepath.Join(dir, "runs")
	cfg.Prompts.Path = filepath.Join(dir, "prompts.yaml")
	cfg.Memory.Path = filepath.Join(dir, "memory")
	return &cfg
}

func TestBuildAgent_RunsEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	rt, err := BuildAgent(context.Background(), cfg, Options{Generator: scripted()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer rt.Close()

	assert.ElementsMatch(t, []string{"calculator", "recall"}, rt.Registry.Names())

	st, err := rt.Agent.Run(context.Background(), "Calculate 10 + 5 and summarize.")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, st.Status)
	assert.Equal(t, "Task Completed.\nSummary:\nStep: Calculate 10 + 5\nResult: Tool 'calculator' Output: 15", st.FinalResponse())

	// objective, plan and result went to long-term memory
	n, err := rt.Memory.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "Adding Numbers", rt.Titler.Title(context.Background(), st.Objective))
}

func TestBuildAgent_LoadsSkillsAndPrompts(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Skills.Dir, 0755))
	src, err := os.ReadFile(filepath.Join("..", "skills", "testdata", "text.go"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Skills.Dir, "text.go"), src, 0644))
	require.NoError(t, os.WriteFile(cfg.Prompts.Path, []byte("plan_template: \"Plan this: {{objective}}\"\n"), 0644))
	cfg.MCP.Servers = map[string]string{"wiki": "http://localhost:9001"}

	rt, err := BuildAgent(context.Background(), cfg, Options{Generator: scripted(), Ephemeral: true, WatchSkills: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer rt.Close()

	assert.ElementsMatch(t, []string{"calculator", "recall", "wiki_search", "word_count", "shout"}, rt.Registry.Names())
}

func TestBuildAgent_BadPromptFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Prompts.Path, []byte("nonsense_template: x\n"), 0644))

	_, err := BuildAgent(context.Background(), cfg, Options{Generator: scripted(), Ephemeral: true}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unknown prompt template")
}

func TestBuildAgent_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "nope"

	_, err := BuildAgent(context.Background(), cfg, Options{Ephemeral: true}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
