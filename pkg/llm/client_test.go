package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should pick the OpenAI-compatible client with the preset base", func(t *testing.T) {
		client, err := New(Options{Provider: "gemini", APIKey: "AIza-test", Model: "gemini-2.0-flash", Logger: testLogger()})
		require.NoError(t, err)
		_, ok := client.(*OpenAIClient)
		assert.True(t, ok)
	})

	t.Run("should pick the Anthropic client", func(t *testing.T) {
		client, err := New(Options{Provider: "anthropic", APIKey: "sk-ant-test", Model: "claude-sonnet-4-5", Logger: testLogger()})
		require.NoError(t, err)
		_, ok := client.(*AnthropicClient)
		assert.True(t, ok)
	})

	t.Run("should require api_base for vllm", func(t *testing.T) {
		_, err := New(Options{Provider: "vllm", Model: "llama", Logger: testLogger()})
		assert.Error(t, err)
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		_, err := New(Options{Provider: "acme", Model: "m"})
		assert.Error(t, err)
	})

	t.Run("should require a model", func(t *testing.T) {
		_, err := New(Options{Provider: "openai", APIKey: "sk-test"})
		assert.Error(t, err)
	})
}

func TestLookupPreset(t *testing.T) {
	p, ok := LookupPreset("zhipu")
	require.True(t, ok)
	assert.Equal(t, "https://openapi.zhipuai.cn/api/paas/v4", p.APIBase)

	p, ok = LookupPreset("openrouter")
	require.True(t, ok)
	assert.Equal(t, "https://openrouter.ai/api/v1", p.APIBase)
}

func TestNormalizeBase(t *testing.T) {
	assert.Equal(t, "http://x/v1/", normalizeBase("http://x/v1"))
	assert.Equal(t, "http://x/v1/", normalizeBase("http://x/v1///"))
}
