package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./workspace", cfg.Agents.Defaults.Workspace)
	assert.Equal(t, 4096, cfg.Agents.Defaults.MaxTokens)
	assert.Equal(t, 0.7, cfg.Agents.Defaults.Temperature)
	assert.Equal(t, 10, cfg.Agents.Defaults.MaxToolIterations)
	assert.Equal(t, 10, cfg.Agents.Defaults.HistoryWindow)
	assert.Equal(t, 5, cfg.Tools.Web.Search.MaxResults)
	assert.False(t, cfg.Channels.Telegram.Enabled)
	assert.Equal(t, "@daily", cfg.Sessions.CleanupSchedule)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestActiveProvider(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		_, _, err := DefaultConfig().ActiveProvider()
		assert.Error(t, err)
	})

	t.Run("priority order", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Providers.Gemini.APIKey = "gemini-key"
		cfg.Providers.OpenAI.APIKey = "sk-openai"

		name, p, err := cfg.ActiveProvider()
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, name)
		assert.Equal(t, "sk-openai", p.APIKey)
	})

	t.Run("empty key is skipped", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Providers.OpenRouter = ProviderConfig{APIBase: "https://openrouter.ai/api/v1"}
		cfg.Providers.Zhipu.APIKey = "zhipu-key"

		name, _, err := cfg.ActiveProvider()
		require.NoError(t, err)
		assert.Equal(t, ProviderZhipu, name)
	})

	t.Run("vllm with base only", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Providers.VLLM.APIBase = "http://localhost:8000/v1"

		name, _, err := cfg.ActiveProvider()
		require.NoError(t, err)
		assert.Equal(t, ProviderVLLM, name)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Providers.OpenRouter.APIKey = "sk-or-test"
		return cfg
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing provider", func(t *testing.T) {
		err := DefaultConfig().Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no LLM provider")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := valid()
		cfg.Agents.Defaults.Model = " "
		assert.ErrorContains(t, cfg.Validate(), "model is required")
	})

	t.Run("non-positive iteration cap", func(t *testing.T) {
		cfg := valid()
		cfg.Agents.Defaults.MaxToolIterations = 0
		assert.ErrorContains(t, cfg.Validate(), "max_tool_iterations")
	})

	t.Run("vllm without base", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Providers.VLLM.APIKey = "token"
		assert.ErrorContains(t, cfg.Validate(), "api_base")
	})

	t.Run("telegram enabled without token", func(t *testing.T) {
		cfg := valid()
		cfg.Channels.Telegram.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "telegram token")
	})
}

func TestWorkspacePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Agents.Defaults.Workspace = "~/.redclaw/workspace"
	assert.Equal(t, filepath.Join(home, ".redclaw", "workspace"), cfg.WorkspacePath())

	cfg.Agents.Defaults.Workspace = "/srv/redclaw"
	assert.Equal(t, "/srv/redclaw", cfg.WorkspacePath())

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	assert.Contains(t, s, `"max_tool_iterations": 10`)
	assert.Contains(t, s, `"allow_from": []`)
}
