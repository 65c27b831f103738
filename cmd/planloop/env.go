package main

import (
	"fmt"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/joho/godotenv"
)

type runtimeEnv struct {
	cfg     *config.Config
	cfgPath string
}

// loadEnv reads .env, the config file and environment overrides, then
// applies command-line flags on top.
func loadEnv(opts *rootOptions) (*runtimeEnv, error) {
	// .env is optional
	_ = godotenv.Load()

	mgr := config.NewManager(opts.configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if opts.skillsDir != "" {
		cfg.Skills.Dir = opts.skillsDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &runtimeEnv{cfg: cfg, cfgPath: mgr.GetConfigPath()}, nil
}
