package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig saves a config whose runs directory lives under t.TempDir().
func writeConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Runs.Dir = filepath.Join(dir, "runs")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.NewManager(path).Save(&cfg))
	return path, &cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRunsList_Empty(t *testing.T) {
	path, _ := writeConfig(t)

	out, err := execute(t, "runs", "list", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "No runs found.\n", out)
}

func TestRunsListAndShow(t *testing.T) {
	path, cfg := writeConfig(t)
	store := session.NewStore(cfg.Runs.Dir)
	require.NoError(t, store.Save(&session.Session{
		ID:        "0a1b2c3d-4e5f",
		Title:     "Adding Numbers",
		Objective: "Calculate 10 + 5 and summarize.",
		Plan:      []string{"Calculate 10 + 5"},
		History:   []engine.StepRecord{{Step: "Calculate 10 + 5", Result: "Tool 'calculator' Output: 15"}},
		Response:  "Task Completed.",
		Status:    engine.StatusCompleted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	out, err := execute(t, "runs", "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0a1b2c3d")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Adding Numbers")

	out, err = execute(t, "runs", "show", "0a1b", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Objective:  Calculate 10 + 5 and summarize.")
	assert.Contains(t, out, "  1. Calculate 10 + 5")
	assert.Contains(t, out, "Result: Tool 'calculator' Output: 15")
	assert.Contains(t, out, "\n--- Final Result ---\nTask Completed.\n")

	_, err = execute(t, "runs", "show", "ffff", "--config", path)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLoadEnv_FlagsOverrideConfig(t *testing.T) {
	path, _ := writeConfig(t)
	t.Setenv("LLM_PROVIDER", "")

	env, err := loadEnv(&rootOptions{configPath: path, skillsDir: "/tmp/skills", logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/skills", env.cfg.Skills.Dir)
	assert.Equal(t, "debug", env.cfg.Log.Level)
	assert.Equal(t, path, env.cfgPath)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(config.LogConfig{Level: "loud"}, os.Stderr)
	assert.Error(t, err)
	_, err = newLogger(config.LogConfig{Format: "xml"}, os.Stderr)
	assert.Error(t, err)
}

func TestDefaultTaskFlag(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	f := cmd.Flags().Lookup("task")
	require.NotNil(t, f)
	assert.Equal(t, defaultTask, f.DefValue)
}
