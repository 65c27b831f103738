// Package recall exposes long-term memory to the model as a tool.
package recall

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
)

const defaultLimit = 3

// NewTool returns the recall tool backed by memory.
func NewTool(memory engine.MemoryStore) *engine.FuncTool {
	return &engine.FuncTool{
		ToolName:   "recall",
		Desc:       "Searches long-term memory for objectives, plans and results from earlier runs.",
		SchemaJSON: `{"type":"object","properties":{"query":{"type":"string"},"limit":{"type":["integer","string"]}},"required":["query"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			items, err := memory.RetrieveRelevant(ctx, query, limitArg(args["limit"]))
			if err != nil {
				return "", fmt.Errorf("memory search failed: %w", err)
			}
			if len(items) == 0 {
				return "No memories found.", nil
			}
			return "- " + strings.Join(items, "\n- "), nil
		},
		Metadata: engine.ToolMetadata{
			Category: "builtin",
			Tags:     []string{"read-only"},
		},
	}
}

func limitArg(v any) int {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil && i > 0 {
			return i
		}
	}
	return defaultLimit
}
