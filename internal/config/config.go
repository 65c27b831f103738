package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the single configuration object built at startup and passed to
// every component that needs it.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Memory  MemoryConfig  `yaml:"memory"`
	Context ContextConfig `yaml:"context"`
	Skills  SkillsConfig  `yaml:"skills"`
	MCP     MCPConfig     `yaml:"mcp"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Prompts PromptsConfig `yaml:"prompts"`
	Runs    RunsConfig    `yaml:"runs"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig selects and tunes the chat-completion backend.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`            // lmstudio, openai, anthropic, ollama, ...
	Model             string  `yaml:"model"`               // Empty means the provider default
	APIKey            string  `yaml:"api_key"`             // Empty means the provider default (local servers need none)
	BaseURL           string  `yaml:"api_base"`            // Empty means the provider default
	Temperature       float32 `yaml:"temperature"`         // Sampling temperature
	MaxOutputTokens   int     `yaml:"max_output_tokens"`   // 0 = provider default
	RequestsPerMinute int     `yaml:"requests_per_minute"` // 0 = unlimited
	MaxRetries        int     `yaml:"max_retries"`         // Transport retries per generation call
}

// AgentConfig holds the control loop knobs.
type AgentConfig struct {
	StructuredRetries int `yaml:"structured_retries"` // JSON repair attempts per structured call
	CompressAfter     int `yaml:"compress_after"`     // Compress when history grows beyond this
	StepToolLimit     int `yaml:"step_tool_limit"`    // Tools offered to the model per step
	PlanToolLimit     int `yaml:"plan_tool_limit"`    // Tool names offered while planning
	ForceReplanAfter  int `yaml:"force_replan_after"` // Streak that triggers the replan directive
	MaxForcedReplans  int `yaml:"max_forced_replans"` // Ignored directives before the step is exhausted
	MaxIterations     int `yaml:"max_iterations"`     // Hard cap on execute/reflect rounds
	RecallLimit       int `yaml:"recall_limit"`       // Memories added to the planning context
}

// MemoryConfig points at the long-term memory database and indexes.
type MemoryConfig struct {
	Path string `yaml:"path"` // Directory; empty = ephemeral
}

// ContextConfig selects the short-term key/value store.
type ContextConfig struct {
	Backend   string        `yaml:"backend"` // sqlite or redis
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

// SkillsConfig points at the skill directory.
type SkillsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// MCPConfig lists MCP servers by name.
type MCPConfig struct {
	Servers map[string]string `yaml:"servers"`
}

// SandboxConfig controls the run_command tool.
type SandboxConfig struct {
	Enabled bool          `yaml:"enabled"`
	Mode    string        `yaml:"mode"` // auto, docker, host
	Image   string        `yaml:"image"`
	CPU     string        `yaml:"cpu"`
	Memory  string        `yaml:"memory"`
	Timeout time.Duration `yaml:"timeout"`
	WorkDir string        `yaml:"workdir"`
}

// PromptsConfig points at optional template overrides.
type PromptsConfig struct {
	Path string `yaml:"path"`
}

// RunsConfig points at the run transcript directory.
type RunsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "lmstudio",
			Temperature: 0.7,
			MaxRetries:  2,
		},
		Agent: AgentConfig{
			StructuredRetries: 3,
			CompressAfter:     5,
			StepToolLimit:     5,
			PlanToolLimit:     10,
			ForceReplanAfter:  3,
			MaxForcedReplans:  3,
			MaxIterations:     100,
			RecallLimit:       3,
		},
		Memory:  MemoryConfig{Path: "agent_memory_db"},
		Context: ContextConfig{Backend: "sqlite", RedisAddr: "localhost:6379", TTL: time.Hour},
		Skills:  SkillsConfig{Dir: "skills"},
		MCP:     MCPConfig{Servers: map[string]string{}},
		Sandbox: SandboxConfig{Mode: "auto", CPU: "2", Memory: "1g", Timeout: 2 * time.Minute, WorkDir: "."},
		Prompts: PromptsConfig{Path: "configs/prompts.yaml"},
		Runs:    RunsConfig{Dir: ".planloop/runs"},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Validate rejects values the agent cannot run with.
func (c Config) Validate() error {
	if c.Agent.StructuredRetries < 1 {
		return fmt.Errorf("agent.structured_retries must be >= 1, got %d", c.Agent.StructuredRetries)
	}
	if c.Agent.CompressAfter < 1 {
		return fmt.Errorf("agent.compress_after must be >= 1, got %d", c.Agent.CompressAfter)
	}
	if c.Agent.StepToolLimit < 0 || c.Agent.PlanToolLimit < 0 {
		return fmt.Errorf("tool limits must not be negative")
	}
	if c.Agent.ForceReplanAfter < 1 {
		return fmt.Errorf("agent.force_replan_after must be >= 1, got %d", c.Agent.ForceReplanAfter)
	}
	if c.Agent.MaxForcedReplans < 1 {
		return fmt.Errorf("agent.max_forced_replans must be >= 1, got %d", c.Agent.MaxForcedReplans)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be >= 1, got %d", c.Agent.MaxIterations)
	}
	switch c.Context.Backend {
	case "", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown context.backend %q (supported: sqlite, redis)", c.Context.Backend)
	}
	switch c.Sandbox.Mode {
	case "", "auto", "docker", "host":
	default:
		return fmt.Errorf("unknown sandbox.mode %q (supported: auto, docker, host)", c.Sandbox.Mode)
	}
	return nil
}

// ApplyEnv overrides provider settings from environment variables.
// Provider-specific variables follow the <PROVIDER>_API_KEY / _MODEL / _BASE_URL pattern.
func (c *Config) ApplyEnv() {
	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	prefix := strings.ToUpper(c.LLM.Provider)
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(prefix + "_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("PLANLOOP_SANDBOX_MODE"); v != "" {
		c.Sandbox.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Context.RedisAddr = v
	}
}
