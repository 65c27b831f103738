// Package execution provides the run_command tool.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/ChamsBouzaiene/planloop/internal/sandbox"
)

const (
	defaultRunCmdTimeout = 60 * time.Second
	maxRunCmdTimeout     = 5 * time.Minute
	minRunCmdTimeout     = 5 * time.Second
	defaultRunCmdLines   = 40
	minRunCmdLines       = 5
	maxRunCmdLines       = 200
	maxRunCmdChars       = 4000
)

var allowedCommands = []string{
	// Text and data
	"cat", "head", "tail", "wc", "grep", "awk", "sed", "sort", "uniq", "diff", "cut", "tr",
	"jq", "yq", "bc",

	// Files (read-only)
	"ls", "find", "tree", "stat", "file", "du",

	// Interpreters
	"python", "python3", "node", "go",

	// Network (read-only)
	"curl", "wget",

	// Utilities
	"echo", "printf", "date", "which", "env", "uname", "sh", "bash",
}

// CommandResult is the JSON document returned to the model.
type CommandResult struct {
	Cmd             string `json:"cmd"`
	ExitCode        int    `json:"exit_code"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	StdoutTruncated bool   `json:"stdout_truncated,omitempty"`
	StderrTruncated bool   `json:"stderr_truncated,omitempty"`
	TimedOut        bool   `json:"timed_out,omitempty"`
	Status          string `json:"status"` // ok, failed
}

func runCommand(ctx context.Context, runner sandbox.Runner, dir, cmd, argsStr string, timeout time.Duration, maxLines int) (string, error) {
	if !slices.Contains(allowedCommands, cmd) {
		return "", fmt.Errorf("command %q is not in allowlist; allowed commands: %s", cmd, strings.Join(allowedCommands, ", "))
	}

	var args []string
	if argsStr != "" {
		args = parseArgs(argsStr)
	}

	result, err := runner.RunCmd(ctx, dir, cmd, args, timeout)

	cmdStr := cmd
	if len(args) > 0 {
		cmdStr += " " + strings.Join(args, " ")
	}

	stdout, stdoutTruncated := truncateOutput(result.Stdout, maxLines)
	stderr, stderrTruncated := truncateOutput(result.Stderr, maxLines)

	out := CommandResult{
		Cmd:             cmdStr,
		ExitCode:        result.Code,
		Stdout:          stdout,
		Stderr:          stderr,
		StdoutTruncated: stdoutTruncated,
		StderrTruncated: stderrTruncated,
		Status:          "ok",
	}
	if result.TimedOut || errors.Is(err, context.DeadlineExceeded) {
		out.TimedOut = true
		out.Status = "failed"
	}
	if result.Code != 0 {
		out.Status = "failed"
	}
	// A non-zero exit is reported in the document; only a command that could
	// not run at all is an error.
	if err != nil && result.Code == 0 && !out.TimedOut {
		return "", fmt.Errorf("failed to run %s: %w", cmd, err)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseArgs splits a space-separated argument string, honouring single and
// double quotes.
func parseArgs(argsStr string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoteChar := byte(0)

	for i := 0; i < len(argsStr); i++ {
		char := argsStr[i]

		switch {
		case (char == '"' || char == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = char
		case inQuotes && char == quoteChar:
			inQuotes = false
			quoteChar = 0
		case char == ' ' && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// intArg reads a numeric argument that the model may send as a number or a
// string. ok is false when the value is absent or unparseable.
func intArg(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func parseTimeoutArg(value any) time.Duration {
	seconds, ok := intArg(value)
	if !ok || seconds <= 0 {
		return defaultRunCmdTimeout
	}
	timeout := time.Duration(seconds) * time.Second
	return min(max(timeout, minRunCmdTimeout), maxRunCmdTimeout)
}

func parseMaxOutputLinesArg(value any) int {
	lines, ok := intArg(value)
	if !ok || lines <= 0 {
		return defaultRunCmdLines
	}
	return min(max(lines, minRunCmdLines), maxRunCmdLines)
}

func truncateOutput(output string, maxLines int) (string, bool) {
	if output == "" {
		return "", false
	}
	truncated := false
	lines := strings.Split(output, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}
	joined := strings.Join(lines, "\n")
	if len(joined) > maxRunCmdChars {
		joined = joined[:maxRunCmdChars]
		truncated = true
	}
	return joined, truncated
}

// NewRunCommandTool creates the run_command tool. Commands run in dir through
// runner.
func NewRunCommandTool(runner sandbox.Runner, dir string) *engine.FuncTool {
	return &engine.FuncTool{
		ToolName: "run_command",
		Desc: "Runs an allowlisted shell command (text utilities such as cat, grep, wc, jq; interpreters such as python3; " +
			"curl; echo, date) and returns its exit code and output as JSON.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"cmd": {"type":"string","description":"Command name (must be in allowlist)"},
				"args": {"type":"string","description":"Command arguments as space-separated string"},
				"timeout_seconds": {"type":["integer","string"],"description":"Maximum seconds to allow the command to run (default: 60)"},
				"max_output_lines": {"type":["integer","string"],"description":"Maximum stdout/stderr lines to return (default: 40)"}
			},
			"required": ["cmd"]
		}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			cmd, ok := args["cmd"].(string)
			if !ok {
				return "", fmt.Errorf("cmd must be a string")
			}
			argsStr, _ := args["args"].(string)

			return runCommand(ctx, runner, dir, strings.TrimSpace(cmd), argsStr,
				parseTimeoutArg(args["timeout_seconds"]),
				parseMaxOutputLinesArg(args["max_output_lines"]))
		},
		Metadata: engine.ToolMetadata{
			Category: "builtin",
			Tags:     []string{"sandboxed"},
		},
	}
}
