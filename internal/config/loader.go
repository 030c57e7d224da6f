package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.json"

// envKeys lists the settings that may be overridden through REDCLAW_* variables.
var envKeys = []string{
	"agents.defaults.workspace",
	"agents.defaults.model",
	"agents.defaults.max_tool_iterations",
	"providers.openrouter.api_key",
	"providers.openai.api_key",
	"providers.anthropic.api_key",
	"providers.gemini.api_key",
	"providers.zhipu.api_key",
	"providers.vllm.api_key",
	"providers.vllm.api_base",
	"tools.web.search.api_key",
	"channels.telegram.token",
	"logging.level",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

func (l *Loader) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(l.GetConfigPath())
	v.SetConfigType("json")
	v.SetEnvPrefix("REDCLAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the config file and applies environment overrides. A missing
// file yields DefaultConfig with the overrides applied.
func (l *Loader) Load() (*Config, error) {
	v := l.newViper()

	if _, err := os.Stat(l.GetConfigPath()); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes cfg as JSON. The file holds API keys, so it is written 0600.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("agents", cfg.Agents)
	v.Set("providers", cfg.Providers)
	v.Set("tools", cfg.Tools)
	v.Set("channels", cfg.Channels)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)
	v.Set("sessions", cfg.Sessions)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Chmod(configPath, 0600)
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return ExpandHome(l.configPath)
	}
	return DefaultConfigPath
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Save is a convenience function that writes cfg to configPath.
func Save(cfg *Config, configPath string) error {
	return NewLoader(configPath).Save(cfg)
}
