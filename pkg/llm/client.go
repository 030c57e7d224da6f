package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/redclaw/pkg/tools"
)

// Transport limits applied to every model call.
const (
	ConnectTimeout = 15 * time.Second
	RequestTimeout = 120 * time.Second
)

// Referer is sent as HTTP-Referer; OpenRouter requires it.
const Referer = "https://github.com/redclaw"

// Client sends a transcript to a model backend and returns its reply.
type Client interface {
	Chat(ctx context.Context, messages []Message, specs []tools.Spec) (Message, error)
}

// Preset describes the defaults of a known provider.
type Preset struct {
	Name    string
	APIBase string
	// Anthropic selects the native Messages API instead of the
	// OpenAI-compatible endpoint.
	Anthropic bool
}

var presets = map[string]Preset{
	"openrouter": {Name: "openrouter", APIBase: "https://openrouter.ai/api/v1"},
	"openai":     {Name: "openai", APIBase: "https://api.openai.com/v1"},
	"gemini":     {Name: "gemini", APIBase: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"zhipu":      {Name: "zhipu", APIBase: "https://openapi.zhipuai.cn/api/paas/v4"},
	"vllm":       {Name: "vllm"},
	"anthropic":  {Name: "anthropic", Anthropic: true},
}

// LookupPreset returns the preset registered for provider.
func LookupPreset(provider string) (Preset, bool) {
	p, ok := presets[provider]
	return p, ok
}

// Options configures a Client.
type Options struct {
	Provider    string
	APIKey      string
	APIBase     string // overrides the preset base URL
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// New returns the client for opts.Provider.
func New(opts Options) (Client, error) {
	preset, ok := LookupPreset(opts.Provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if opts.APIBase == "" {
		opts.APIBase = preset.APIBase
	}

	if preset.Anthropic {
		return NewAnthropicClient(opts)
	}
	if opts.APIBase == "" {
		return nil, fmt.Errorf("api_base is required for provider %s", opts.Provider)
	}
	return NewOpenAIClient(opts)
}

// NewHTTPClient returns an http.Client with the connect and total timeouts
// used for model calls.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = ConnectTimeout

	return &http.Client{
		Timeout:   RequestTimeout,
		Transport: transport,
	}
}

func normalizeBase(base string) string {
	return strings.TrimRight(base, "/") + "/"
}

// sanitize gives every message without content and tool calls an empty
// content string; several backends reject null content.
func sanitize(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		if m.Content == nil && len(m.ToolCalls) == 0 {
			m.Content = String("")
		}
		out[i] = m
	}
	return out
}
