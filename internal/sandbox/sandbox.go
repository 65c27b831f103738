// Package sandbox runs commands for the run_command tool, inside a docker
// container when one is available and on the host otherwise.
package sandbox

import (
	"context"
	"time"
)

const defaultCmdTimeout = 2 * time.Minute

// Result captures output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner runs a command in dir. A timeout <= 0 uses the runner's default.
type Runner interface {
	RunCmd(ctx context.Context, dir, name string, args []string, timeout time.Duration) (Result, error)
}

func effectiveTimeout(timeout, configured time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if configured > 0 {
		return configured
	}
	return defaultCmdTimeout
}
