package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider names in selection priority order.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderZhipu      = "zhipu"
	ProviderVLLM       = "vllm"
)

// ProviderPriority is the order in which configured providers are picked.
var ProviderPriority = []string{
	ProviderOpenRouter,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGemini,
	ProviderZhipu,
	ProviderVLLM,
}

// Config represents the RedClaw configuration file.
type Config struct {
	Agents    AgentsConfig    `json:"agents" mapstructure:"agents"`
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`
	Tools     ToolsConfig     `json:"tools" mapstructure:"tools"`
	Channels  ChannelsConfig  `json:"channels" mapstructure:"channels"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics"`
	Sessions  SessionsConfig  `json:"sessions" mapstructure:"sessions"`
}

// AgentsConfig wraps the agent defaults block.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults" mapstructure:"defaults"`
}

// AgentDefaults holds the agent loop settings.
type AgentDefaults struct {
	Workspace         string  `json:"workspace" mapstructure:"workspace"`
	Model             string  `json:"model" mapstructure:"model"`
	MaxTokens         int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `json:"temperature" mapstructure:"temperature"`
	MaxToolIterations int     `json:"max_tool_iterations" mapstructure:"max_tool_iterations"`
	HistoryWindow     int     `json:"history_window" mapstructure:"history_window"`
}

// ProvidersConfig holds credentials per model backend.
type ProvidersConfig struct {
	OpenRouter ProviderConfig `json:"openrouter" mapstructure:"openrouter"`
	OpenAI     ProviderConfig `json:"openai" mapstructure:"openai"`
	Anthropic  ProviderConfig `json:"anthropic" mapstructure:"anthropic"`
	Gemini     ProviderConfig `json:"gemini" mapstructure:"gemini"`
	Zhipu      ProviderConfig `json:"zhipu" mapstructure:"zhipu"`
	VLLM       ProviderConfig `json:"vllm" mapstructure:"vllm"`
}

// ProviderConfig holds one backend's credentials.
type ProviderConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	APIBase string `json:"api_base,omitempty" mapstructure:"api_base"`
}

// usable reports whether the named provider can be selected. Hosted
// providers need a key; a vllm server often runs without one, so its base
// URL is enough.
func (p ProviderConfig) usable(name string) bool {
	if name == ProviderVLLM {
		return p.APIKey != "" || p.APIBase != ""
	}
	return p.APIKey != ""
}

// ToolsConfig holds tool settings
type ToolsConfig struct {
	Web  WebToolsConfig `json:"web" mapstructure:"web"`
	Exec ExecConfig     `json:"exec" mapstructure:"exec"`
}

// WebToolsConfig holds web tool settings
type WebToolsConfig struct {
	Search WebSearchConfig `json:"search" mapstructure:"search"`
}

// WebSearchConfig configures the Brave search tool.
type WebSearchConfig struct {
	APIKey     string `json:"api_key" mapstructure:"api_key"`
	MaxResults int    `json:"max_results" mapstructure:"max_results"`
}

// ExecConfig configures the shell tool.
type ExecConfig struct {
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ChannelsConfig holds channel configuration
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Enabled   bool     `json:"enabled" mapstructure:"enabled"`
	Token     string   `json:"token" mapstructure:"token"`
	AllowFrom []string `json:"allow_from" mapstructure:"allow_from"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SessionsConfig controls session file maintenance.
type SessionsConfig struct {
	CleanupSchedule string `json:"cleanup_schedule" mapstructure:"cleanup_schedule"`
	MaxAgeDays      int    `json:"max_age_days" mapstructure:"max_age_days"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:         "./workspace",
				Model:             "arcee-ai/trinity-large-preview:free",
				MaxTokens:         4096,
				Temperature:       0.7,
				MaxToolIterations: 10,
				HistoryWindow:     10,
			},
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				Search: WebSearchConfig{MaxResults: 5},
			},
			Exec: ExecConfig{TimeoutSeconds: 60},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{AllowFrom: []string{}},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
			MaxSize:   10,
			MaxAge:    7,
			Compress:  true,
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Sessions: SessionsConfig{
			CleanupSchedule: "@daily",
			MaxAgeDays:      30,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// WorkspacePath returns the workspace directory with a leading ~ expanded.
func (c *Config) WorkspacePath() string {
	return ExpandHome(c.Agents.Defaults.Workspace)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// Provider returns the settings of the named provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderOpenRouter:
		return c.Providers.OpenRouter, true
	case ProviderOpenAI:
		return c.Providers.OpenAI, true
	case ProviderAnthropic:
		return c.Providers.Anthropic, true
	case ProviderGemini:
		return c.Providers.Gemini, true
	case ProviderZhipu:
		return c.Providers.Zhipu, true
	case ProviderVLLM:
		return c.Providers.VLLM, true
	}
	return ProviderConfig{}, false
}

// ActiveProvider returns the first configured provider in priority order.
func (c *Config) ActiveProvider() (string, ProviderConfig, error) {
	for _, name := range ProviderPriority {
		p, _ := c.Provider(name)
		if p.usable(name) {
			return name, p, nil
		}
	}
	return "", ProviderConfig{}, fmt.Errorf("no LLM provider configured: set an api_key under providers")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	d := c.Agents.Defaults
	if strings.TrimSpace(d.Workspace) == "" {
		return fmt.Errorf("agents.defaults.workspace is required")
	}
	if strings.TrimSpace(d.Model) == "" {
		return fmt.Errorf("agents.defaults.model is required")
	}
	if d.MaxToolIterations <= 0 {
		return fmt.Errorf("agents.defaults.max_tool_iterations must be positive, got %d", d.MaxToolIterations)
	}
	if d.HistoryWindow < 0 {
		return fmt.Errorf("agents.defaults.history_window cannot be negative")
	}

	name, p, err := c.ActiveProvider()
	if err != nil {
		return err
	}
	if name == ProviderVLLM && p.APIBase == "" {
		return fmt.Errorf("providers.vllm.api_base is required")
	}

	if c.Channels.Telegram.Enabled && c.Channels.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required when the Telegram channel is enabled")
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}

	return nil
}
