// Package skills loads tools from Go source files interpreted at runtime.
//
// A skill file declares any package name and exports two functions:
//
//	func GetTools() []map[string]string
//	func Run(name string, args map[string]interface{}) (string, error)
//
// GetTools describes each tool with the keys "name", "description" and an
// optional "schema" holding a JSON schema for the arguments. Run is called
// with the tool name and the arguments chosen by the model.
package skills

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

const ignoreFile = ".skillignore"

// allowedImports are the packages a skill may use.
var allowedImports = map[string]bool{
	"bytes":         true,
	"encoding/json": true,
	"errors":        true,
	"fmt":           true,
	"math":          true,
	"regexp":        true,
	"sort":          true,
	"strconv":       true,
	"strings":       true,
	"time":          true,
	"unicode":       true,
}

type (
	getToolsFunc = func() []map[string]string
	runFunc      = func(string, map[string]interface{}) (string, error)
)

// Loader reads skill files from a directory.
type Loader struct {
	dir    string
	logger *zap.Logger
}

func NewLoader(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger}
}

// Dir returns the skill directory.
func (l *Loader) Dir() string { return l.dir }

// Load returns the tools of every valid skill file. A missing directory
// yields no tools. Files that fail to load are skipped with a warning.
func (l *Loader) Load(ctx context.Context) ([]engine.Tool, error) {
	info, err := os.Stat(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("skill directory not found, no skills loaded", zap.String("dir", l.dir))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat skill directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("skill path %s is not a directory", l.dir)
	}

	ignore := l.ignoreMatcher()
	var files []string
	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(l.dir, path)
		if rel != "." && ignore != nil && ignore.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if rel != "." && (d.Name() == "testdata" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if isSkillFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk skill directory: %w", err)
	}

	var tools []engine.Tool
	seen := make(map[string]string)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := l.loadFile(ctx, path)
		if err != nil {
			l.logger.Warn("skipping skill", zap.String("file", path), zap.Error(err))
			continue
		}
		for _, t := range loaded {
			if prev, ok := seen[t.Name()]; ok {
				l.logger.Warn("duplicate skill tool, later definition wins",
					zap.String("tool", t.Name()), zap.String("previous", prev), zap.String("file", path))
			}
			seen[t.Name()] = path
			tools = append(tools, t)
		}
		l.logger.Debug("skill loaded", zap.String("file", path), zap.Int("tools", len(loaded)))
	}
	return tools, nil
}

func isSkillFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func (l *Loader) ignoreMatcher() gitignore.IgnoreParser {
	path := filepath.Join(l.dir, ignoreFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	m, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		l.logger.Warn("failed to read skill ignore file", zap.String("file", path), zap.Error(err))
		return nil
	}
	return m
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]engine.Tool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pkg, err := checkSource(path, src)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, stripBuildConstraints(string(src))); err != nil {
		return nil, fmt.Errorf("failed to evaluate: %w", err)
	}

	getToolsV, err := i.EvalWithContext(ctx, pkg+".GetTools")
	if err != nil {
		return nil, fmt.Errorf("missing GetTools: %w", err)
	}
	getTools, ok := getToolsV.Interface().(getToolsFunc)
	if !ok {
		return nil, fmt.Errorf("GetTools has type %s, want func() []map[string]string", getToolsV.Type())
	}

	runV, err := i.EvalWithContext(ctx, pkg+".Run")
	if err != nil {
		return nil, fmt.Errorf("missing Run: %w", err)
	}
	run, ok := runV.Interface().(runFunc)
	if !ok {
		return nil, fmt.Errorf("Run has type %s, want func(string, map[string]interface{}) (string, error)", runV.Type())
	}

	specs, err := callGetTools(getTools)
	if err != nil {
		return nil, err
	}

	// an interpreter is not safe for concurrent calls into the same file
	var mu sync.Mutex
	tools := make([]engine.Tool, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec["name"])
		if name == "" {
			return nil, errors.New("GetTools returned a tool without a name")
		}
		tools = append(tools, &engine.FuncTool{
			ToolName:   name,
			Desc:       spec["description"],
			SchemaJSON: spec["schema"],
			Fn: func(_ context.Context, args map[string]any) (out string, err error) {
				mu.Lock()
				defer mu.Unlock()
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("skill %s panicked: %v", name, r)
					}
				}()
				return run(name, args)
			},
			Metadata: engine.ToolMetadata{
				Category: "skill",
				Source:   path,
			},
		})
	}
	return tools, nil
}

func callGetTools(fn getToolsFunc) (specs []map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("GetTools panicked: %v", r)
		}
	}()
	return fn(), nil
}

// checkSource returns the package name and rejects imports outside the
// allowlist.
func checkSource(path string, src []byte) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("failed to parse: %w", err)
	}
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return "", err
		}
		if !allowedImports[p] {
			return "", fmt.Errorf("import %q is not allowed in skills", p)
		}
	}
	return f.Name.Name, nil
}

// stripBuildConstraints drops //go:build lines. Skill files carry
// "//go:build ignore" so the go tool does not compile them into the module.
func stripBuildConstraints(src string) string {
	lines := strings.Split(src, "\n")
	out := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//go:build") || strings.HasPrefix(trimmed, "// +build") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
