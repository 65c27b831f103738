package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/docker/docker/client"
	"go.uber.org/zap"
)

// Mode represents the sandbox execution mode.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto uses Docker if available, otherwise falls back to host.
	ModeAuto Mode = "auto"
)

const defaultImage = "alpine:latest"

// Config holds configuration for sandbox execution.
type Config struct {
	Mode       Mode
	Image      string        // Container image; empty = alpine:latest
	CPU        string        // CPU limit (e.g., "2", "1.5")
	Memory     string        // Memory limit (e.g., "1g", "512m")
	CmdTimeout time.Duration // Default command timeout (0 = use default)
}

// FromConfig converts the sandbox section of the application config.
func FromConfig(c config.SandboxConfig) Config {
	mode := Mode(strings.ToLower(c.Mode))
	if mode == "" {
		mode = ModeAuto
	}
	return Config{
		Mode:       mode,
		Image:      c.Image,
		CPU:        c.CPU,
		Memory:     c.Memory,
		CmdTimeout: c.Timeout,
	}
}

// IsDockerAvailable reports whether a docker daemon answers a ping.
func IsDockerAvailable(ctx context.Context) bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = cli.Ping(ctx)
	return err == nil
}

// NewRunner creates the runner selected by cfg.Mode. Docker and auto modes
// fall back to the host runner with a warning when docker cannot be reached.
func NewRunner(ctx context.Context, cfg Config, logger *zap.Logger) (Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Mode {
	case ModeHost:
		logger.Warn("using host executor, commands are not sandboxed")
		return &HostRunner{config: cfg}, nil

	case ModeDocker, ModeAuto:
		if !IsDockerAvailable(ctx) {
			logger.Warn("docker not available, falling back to host executor", zap.String("mode", string(cfg.Mode)))
			return &HostRunner{config: cfg}, nil
		}
		runner, err := NewDockerRunner(ctx, cfg)
		if err != nil {
			logger.Warn("failed to create docker runner, falling back to host executor", zap.Error(err))
			return &HostRunner{config: cfg}, nil
		}
		return runner, nil

	default:
		return nil, fmt.Errorf("unknown sandbox mode: %s", cfg.Mode)
	}
}
