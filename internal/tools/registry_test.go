package tools

import (
	"context"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type nopRunner struct{}

func (nopRunner) RunCmd(context.Context, string, string, []string, time.Duration) (sandbox.Result, error) {
	return sandbox.Result{}, nil
}

type nopMemory struct{}

func (nopMemory) Add(context.Context, string, map[string]string) (string, error) { return "", nil }
func (nopMemory) RetrieveRelevant(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func TestBuildRegistry_Minimal(t *testing.T) {
	reg, err := BuildRegistry(context.Background(), Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"calculator"}, reg.Names())
}

func TestBuildRegistry_Full(t *testing.T) {
	skill := &engine.FuncTool{
		ToolName: "word_count",
		Desc:     "Counts words.",
		Metadata: engine.ToolMetadata{Category: "skill"},
		Fn:       func(context.Context, map[string]any) (string, error) { return "2", nil },
	}

	reg, err := BuildRegistry(context.Background(), Options{
		Memory:     nopMemory{},
		MCPServers: map[string]string{"wiki": "http://localhost:9001"},
		Runner:     nopRunner{},
		Skills:     []engine.Tool{skill},
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"calculator", "recall", "run_command", "wiki_search", "word_count"}, reg.Names())
	cats := reg.Categories()
	assert.Equal(t, []string{"wiki_search"}, cats["mcp"])
	assert.Equal(t, []string{"word_count"}, cats["skill"])

	out := reg.Execute(context.Background(), "calculator", map[string]any{"expression": "10 + 5"})
	assert.Equal(t, "15", out)
	assert.Equal(t, "Tool missing not found.", reg.Execute(context.Background(), "missing", nil))
}
