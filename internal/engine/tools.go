package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Tool is a named capability a step can invoke.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// SchemaProvider is implemented by tools that publish a JSON schema for their
// arguments. Arguments are validated against it before Invoke.
type SchemaProvider interface {
	Schema() string
}

type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolMetadata describes where a tool came from.
type ToolMetadata struct {
	Category string   // "builtin", "mcp", "skill"
	Tags     []string // e.g., ["read-only", "idempotent"]
	Source   string   // file or server the tool came from
}

// FuncTool adapts a function to Tool.
type FuncTool struct {
	ToolName   string
	Desc       string
	SchemaJSON string
	Fn         ToolFunc
	Metadata   ToolMetadata
}

func (t *FuncTool) Name() string        { return t.ToolName }
func (t *FuncTool) Description() string { return t.Desc }
func (t *FuncTool) Schema() string      { return t.SchemaJSON }

func (t *FuncTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.Fn == nil {
		return "", fmt.Errorf("tool %s has no implementation", t.ToolName)
	}
	return t.Fn(ctx, args)
}

// GetCategory returns the tool category, defaulting to "general" if unset.
func (t *FuncTool) GetCategory() string {
	if t.Metadata.Category == "" {
		return "general"
	}
	return t.Metadata.Category
}

// ValidateArgs validates args against the tool's JSON schema, if it has one.
func ValidateArgs(t Tool, args map[string]any) error {
	sp, ok := t.(SchemaProvider)
	if !ok || sp.Schema() == "" {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	schemaLoader := gojsonschema.NewStringLoader(sp.Schema())
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ToolValidationError{
			ToolName: t.Name(),
			Errors:   errorMsgs,
		}
	}
	return nil
}

// ToolInfo is the catalog entry shown to the model.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolIndex ranks tool names by relevance to a query.
type ToolIndex interface {
	IndexTool(ctx context.Context, name, description string) error
	RetrieveTools(ctx context.Context, query string, limit int) ([]string, error)
}

// ToolProvider is what the executor and planner need from a registry.
type ToolProvider interface {
	List(ctx context.Context, query string, limit int) []ToolInfo
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// ToolRegistry holds the tools available to a run. It is safe for concurrent
// use so that the skills watcher can register tools while a run is going.
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	index  ToolIndex
	logger *zap.Logger
}

// NewToolRegistry creates an empty registry. index may be nil, in which case
// List falls back to registration order.
func NewToolRegistry(index ToolIndex, logger *zap.Logger) *ToolRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolRegistry{
		tools:  make(map[string]Tool),
		index:  index,
		logger: logger,
	}
}

// Register adds or replaces a tool and indexes its description.
func (r *ToolRegistry) Register(ctx context.Context, t Tool) error {
	if t == nil || t.Name() == "" {
		return errors.New("tool must have a name")
	}

	r.mu.Lock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
	r.mu.Unlock()

	if r.index != nil {
		if err := r.index.IndexTool(ctx, t.Name(), t.Description()); err != nil {
			r.logger.Warn("failed to index tool", zap.String("tool", t.Name()), zap.Error(err))
		}
	}
	r.logger.Debug("tool registered", zap.String("tool", t.Name()))
	return nil
}

// Unregister removes a tool. It reports whether the tool was present.
func (r *ToolRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get looks up a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// List returns up to limit tools. With a query, tools are ranked by the index;
// tools the index has never seen or no longer registered are skipped. Without
// a query, or when ranking finds nothing, registration order is used.
// limit <= 0 means no limit.
func (r *ToolRegistry) List(ctx context.Context, query string, limit int) []ToolInfo {
	var out []ToolInfo

	if query != "" && r.index != nil {
		names, err := r.index.RetrieveTools(ctx, query, limit)
		if err != nil {
			r.logger.Warn("tool retrieval failed", zap.String("query", query), zap.Error(err))
		}
		r.mu.RLock()
		for _, name := range names {
			if t, ok := r.tools[name]; ok {
				out = append(out, ToolInfo{Name: t.Name(), Description: t.Description()})
			}
		}
		r.mu.RUnlock()
	}

	if len(out) > 0 {
		return truncateTools(out, limit)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, ToolInfo{Name: t.Name(), Description: t.Description()})
	}
	return truncateTools(out, limit)
}

// Invoke validates args and runs the named tool.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", &ToolNotFoundError{Name: name}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateArgs(t, args); err != nil {
		return "", err
	}
	out, err := invokeRecovering(ctx, t, args)
	if err != nil {
		return "", &ToolExecutionError{ToolName: name, Err: err}
	}
	return out, nil
}

// invokeRecovering turns a panic inside the tool into an error.
func invokeRecovering(ctx context.Context, t Tool, args map[string]any) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Invoke(ctx, args)
}

// Execute is Invoke with every outcome folded into text: "Tool <name> not
// found." for unknown tools and "Error: ..." for failures.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) string {
	out, err := r.Invoke(ctx, name, args)
	if err == nil {
		return out
	}
	var notFound *ToolNotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}
	return "Error: " + err.Error()
}

// Categories groups registered tool names by metadata category.
func (r *ToolRegistry) Categories() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string)
	for _, name := range r.order {
		category := "general"
		if ft, ok := r.tools[name].(*FuncTool); ok {
			category = ft.GetCategory()
		}
		out[category] = append(out[category], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

func truncateTools(tools []ToolInfo, limit int) []ToolInfo {
	if limit > 0 && len(tools) > limit {
		return tools[:limit]
	}
	return tools
}
