// Package config handles Reeve configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/reeve/config.yaml, /etc/reeve/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reeve", "config.yaml"))
	}

	paths = append(paths, "/etc/reeve/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Reeve configuration.
type Config struct {
	Listen        ListenConfig        `yaml:"listen"`
	SmartThings   SmartThingsConfig   `yaml:"smartthings"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Agent         AgentConfig         `yaml:"agent"`
	DataDir       string              `yaml:"data_dir" envconfig:"REEVE_DATA_DIR"`
	LogLevel      string              `yaml:"log_level" envconfig:"REEVE_LOG_LEVEL"`
	LogFormat     string              `yaml:"log_format" envconfig:"REEVE_LOG_FORMAT"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address" envconfig:"REEVE_LISTEN_ADDRESS"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port" envconfig:"REEVE_LISTEN_PORT"`
}

// SmartThingsConfig defines the device cloud connection.
type SmartThingsConfig struct {
	BaseURL         string `yaml:"base_url" envconfig:"REEVE_SMARTTHINGS_BASE_URL"`
	Token           string `yaml:"token" envconfig:"REEVE_SMARTTHINGS_TOKEN"`
	PollIntervalSec int    `yaml:"poll_interval_sec" envconfig:"REEVE_SMARTTHINGS_POLL_INTERVAL_SEC"`
	TimeoutSec      int    `yaml:"timeout_sec" envconfig:"REEVE_SMARTTHINGS_TIMEOUT_SEC"`
}

// PollInterval returns the device poll cadence, defaulting to one minute.
func (c SmartThingsConfig) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// Timeout returns the per-request deadline for device API calls.
func (c SmartThingsConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// HomeAssistantConfig defines the automation state connection. This is a
// separate credential from the device cloud; the two paths share nothing.
type HomeAssistantConfig struct {
	Enabled         bool     `yaml:"enabled" envconfig:"REEVE_HOMEASSISTANT_ENABLED"`
	URL             string   `yaml:"url" envconfig:"REEVE_HOMEASSISTANT_URL"`
	Token           string   `yaml:"token" envconfig:"REEVE_HOMEASSISTANT_TOKEN"`
	PollIntervalSec int      `yaml:"poll_interval_sec" envconfig:"REEVE_HOMEASSISTANT_POLL_INTERVAL_SEC"`
	Include         []string `yaml:"include" envconfig:"REEVE_HOMEASSISTANT_INCLUDE"` // entity glob patterns, empty = all
}

// PollInterval returns the automation state poll cadence, defaulting to one minute.
func (c HomeAssistantConfig) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// OracleConfig defines the local model endpoint backing the intent gate and
// the confirmation synthesizer.
type OracleConfig struct {
	URL        string `yaml:"url" envconfig:"REEVE_ORACLE_URL"`
	Model      string `yaml:"model" envconfig:"REEVE_ORACLE_MODEL"`
	TimeoutSec int    `yaml:"timeout_sec" envconfig:"REEVE_ORACLE_TIMEOUT_SEC"`
}

// Timeout returns the per-call deadline for oracle requests.
func (c OracleConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// AgentConfig identifies the agent on whose behalf memories are written.
type AgentConfig struct {
	ID   string `yaml:"id" envconfig:"REEVE_AGENT_ID"`
	Room string `yaml:"room" envconfig:"REEVE_AGENT_ROOM"`
}

// ValidationError reports a configuration problem that prevents startup.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration eagerly, before any component starts.
// A missing device cloud token is fatal here rather than on first use.
func (c *Config) Validate() error {
	if c.SmartThings.Token == "" {
		return &ValidationError{Field: "smartthings.token", Reason: "required"}
	}
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return &ValidationError{Field: "listen.port", Reason: fmt.Sprintf("out of range: %d", c.Listen.Port)}
	}
	if c.HomeAssistant.Enabled {
		if c.HomeAssistant.URL == "" {
			return &ValidationError{Field: "homeassistant.url", Reason: "required when enabled"}
		}
		if c.HomeAssistant.Token == "" {
			return &ValidationError{Field: "homeassistant.token", Reason: "required when enabled"}
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Field: "log_level", Reason: err.Error()}
	}
	return nil
}

// Load reads configuration from a YAML file, then overlays REEVE_*
// environment variables so secrets can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references inside the file
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	// The tags carry the full REEVE_* names, so no prefix here.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("environment overlay: %w", err)
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		SmartThings: SmartThingsConfig{
			BaseURL:         "https://api.smartthings.com/v1",
			PollIntervalSec: 60,
			TimeoutSec:      10,
		},
		Oracle: OracleConfig{
			URL:   "http://localhost:11434",
			Model: "qwen3:4b",
		},
		Agent: AgentConfig{
			ID:   "reeve",
			Room: "default",
		},
		DataDir: "data",
	}
}
