// Package tools assembles the tool registry for a run.
package tools

import (
	"context"
	"fmt"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/sandbox"
	"github.com/ChamsBouzaiene/planloop/internal/tools/calculator"
	"github.com/ChamsBouzaiene/planloop/internal/tools/execution"
	"github.com/ChamsBouzaiene/planloop/internal/tools/mcp"
	"github.com/ChamsBouzaiene/planloop/internal/tools/recall"
	"go.uber.org/zap"
)

// Options selects what goes into the registry. Zero fields are skipped.
type Options struct {
	Index      engine.ToolIndex   // ranks tools per step; nil means registration order
	Memory     engine.MemoryStore // enables recall
	MCPServers map[string]string  // name -> url
	Runner     sandbox.Runner     // enables run_command
	WorkDir    string             // directory run_command runs in
	Skills     []engine.Tool
	Logger     *zap.Logger
}

// BuildRegistry registers the built-in tools, MCP tools and skills. Skills
// are registered last so a skill can replace a built-in of the same name.
func BuildRegistry(ctx context.Context, opts Options) (*engine.ToolRegistry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := engine.NewToolRegistry(opts.Index, logger.Named("tools"))

	var all []engine.Tool
	all = append(all, calculator.NewTool())
	if opts.Memory != nil {
		all = append(all, recall.NewTool(opts.Memory))
	}
	if opts.Runner != nil {
		dir := opts.WorkDir
		if dir == "" {
			dir = "."
		}
		all = append(all, execution.NewRunCommandTool(opts.Runner, dir))
	}
	all = append(all, mcp.FromConfig(opts.MCPServers).Tools()...)
	all = append(all, opts.Skills...)

	for _, t := range all {
		if err := reg.Register(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", t.Name(), err)
		}
	}

	logger.Info("tools registered", zap.Int("count", reg.Len()), zap.Any("categories", reg.Categories()))
	return reg, nil
}
