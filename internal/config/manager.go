package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the config file.
const DefaultPath = "configs/config.yaml"

// Manager handles loading and saving the configuration file.
type Manager struct {
	path string
	raw  map[string]any
}

// NewManager creates a configuration manager for the given file.
// An empty path uses DefaultPath.
func NewManager(path string) *Manager {
	if path == "" {
		path = DefaultPath
	}
	return &Manager{path: path}
}

// GetConfigPath returns the path of the config file.
func (m *Manager) GetConfigPath() string {
	return m.path
}

// Load reads the configuration from disk on top of Default().
// If the file does not exist, it returns the defaults and no error.
func (m *Manager) Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.raw = map[string]any{}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	m.raw = raw

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", m.path, err)
	}
	return &cfg, nil
}

// Get resolves a dotted key (e.g. "mcp.servers") against the raw document
// read by the last Load. Missing keys return def.
func (m *Manager) Get(key string, def any) any {
	var value any = m.raw
	for _, part := range strings.Split(key, ".") {
		node, ok := value.(map[string]any)
		if !ok {
			return def
		}
		value, ok = node[part]
		if !ok {
			return def
		}
	}
	if value == nil {
		return def
	}
	return value
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return !os.IsNotExist(err)
}
