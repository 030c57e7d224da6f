package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
	assert.Equal(t, DefaultConfigPath, NewLoader("").GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("default config when file doesn't exist", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("load config from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		content := `{
			"agents": {"defaults": {"workspace": "/tmp/ws", "model": "openai/gpt-4o-mini", "max_tool_iterations": 4}},
			"providers": {"openrouter": {"api_key": "sk-or-abc"}},
			"tools": {"web": {"search": {"api_key": "BSA123", "max_results": 3}}},
			"channels": {"telegram": {"enabled": true, "token": "123:abc", "allow_from": ["42", "alice"]}}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg, err := Load(configPath)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/ws", cfg.Agents.Defaults.Workspace)
		assert.Equal(t, "openai/gpt-4o-mini", cfg.Agents.Defaults.Model)
		assert.Equal(t, 4, cfg.Agents.Defaults.MaxToolIterations)
		// untouched keys keep their defaults
		assert.Equal(t, 4096, cfg.Agents.Defaults.MaxTokens)
		assert.Equal(t, "sk-or-abc", cfg.Providers.OpenRouter.APIKey)
		assert.Equal(t, 3, cfg.Tools.Web.Search.MaxResults)
		assert.True(t, cfg.Channels.Telegram.Enabled)
		assert.Equal(t, []string{"42", "alice"}, cfg.Channels.Telegram.AllowFrom)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

		_, err := Load(configPath)
		assert.Error(t, err)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("REDCLAW_PROVIDERS_OPENAI_API_KEY", "sk-from-env")
		t.Setenv("REDCLAW_AGENTS_DEFAULTS_MODEL", "gpt-4o")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", cfg.Providers.OpenAI.APIKey)
		assert.Equal(t, "gpt-4o", cfg.Agents.Defaults.Model)
	})
}

func TestLoaderSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Providers.Gemini.APIKey = "gemini-key"
	cfg.Channels.Telegram.AllowFrom = []string{"12345"}

	require.NoError(t, Save(cfg, configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", loaded.Providers.Gemini.APIKey)
	assert.Equal(t, []string{"12345"}, loaded.Channels.Telegram.AllowFrom)
	assert.Equal(t, cfg.Agents, loaded.Agents)
}
