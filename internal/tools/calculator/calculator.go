// Package calculator provides the calculator tool. Expressions are checked
// against an arithmetic allowlist and then evaluated by a yaegi interpreter
// that has no packages available.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/traefik/yaegi/interp"
)

var (
	allowed = regexp.MustCompile(`^[0-9+\-*/%().\s]+$`)
	number  = regexp.MustCompile(`\d+(\.\d+)?`)
)

// Evaluate computes an arithmetic expression. Division is floating point
// unless the expression uses %, in which case integer arithmetic applies.
func Evaluate(ctx context.Context, expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", errors.New("empty expression")
	}
	if !allowed.MatchString(expr) {
		return "", fmt.Errorf("unsupported characters in expression %q", expr)
	}
	if !strings.Contains(expr, "%") {
		expr = number.ReplaceAllStringFunc(expr, func(n string) string {
			if strings.Contains(n, ".") {
				return n
			}
			return n + ".0"
		})
	}

	i := interp.New(interp.Options{})
	v, err := i.EvalWithContext(ctx, expr)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}

	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	default:
		return "", fmt.Errorf("expression did not produce a number")
	}
}

// NewTool returns the calculator tool.
func NewTool() *engine.FuncTool {
	return &engine.FuncTool{
		ToolName:   "calculator",
		Desc:       "A simple calculator that evaluates math expressions.",
		SchemaJSON: `{"type":"object","properties":{"expression":{"type":"string","description":"Arithmetic expression, e.g. 10 + 5"}},"required":["expression"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			expr, _ := args["expression"].(string)
			return Evaluate(ctx, expr)
		},
		Metadata: engine.ToolMetadata{
			Category: "builtin",
			Tags:     []string{"read-only", "idempotent"},
		},
	}
}
