package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/harun/redclaw/pkg/tools"
)

// OpenAIClient posts to the chat/completions endpoint of any
// OpenAI-compatible backend.
type OpenAIClient struct {
	client      openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature float64
	logger      zerolog.Logger
}

// NewOpenAIClient creates a client for opts.APIBase. Retries are disabled;
// a failed call surfaces immediately.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIBase == "" {
		return nil, fmt.Errorf("api_base is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	provider := opts.Provider
	if provider == "" {
		provider = "openai"
	}

	return &OpenAIClient{
		client: openai.NewClient(
			option.WithBaseURL(normalizeBase(opts.APIBase)),
			option.WithAPIKey(opts.APIKey),
			option.WithHeader("HTTP-Referer", Referer),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
		provider:    provider,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      opts.Logger.With().Str("component", "llm").Str("provider", provider).Logger(),
	}, nil
}

// Chat sends messages and the tool schemas and returns choices[0].message.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, specs []tools.Spec) (Message, error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerLLM, "llm.chat",
		attribute.String("provider", c.provider),
		attribute.String("model", c.model),
		attribute.Int("messages", len(messages)),
		attribute.Int("tools", len(specs)),
	)
	logger := tracing.LoggerFromContext(ctx, c.logger)

	start := time.Now()
	reply, err := c.chat(ctx, messages, specs)
	duration := time.Since(start)

	observability.RecordModelCall(c.provider, duration, err == nil)
	tracing.EndSpan(span, err)

	if err != nil {
		logger.Warn().Err(err).Dur("duration", duration).Msg("Model call failed")
		return Message{}, err
	}

	logger.Debug().
		Dur("duration", duration).
		Int("tool_calls", len(reply.ToolCalls)).
		Msg("Model call completed")

	return reply, nil
}

func (c *OpenAIClient) chat(ctx context.Context, messages []Message, specs []tools.Spec) (Message, error) {
	body, err := c.requestBody(messages, specs)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode request: %w", err)
	}

	var raw []byte
	if err := c.client.Post(ctx, "chat/completions", json.RawMessage(body), &raw); err != nil {
		return Message{}, c.classify(err)
	}

	return parseResponse(raw)
}

type toolParam struct {
	Type     string     `json:"type"`
	Function tools.Spec `json:"function"`
}

// requestBody assembles {model, messages, tools?, max_tokens?, temperature?}.
func (c *OpenAIClient) requestBody(messages []Message, specs []tools.Spec) ([]byte, error) {
	encoded, err := json.Marshal(sanitize(messages))
	if err != nil {
		return nil, err
	}

	body, err := sjson.SetBytes([]byte(`{}`), "model", c.model)
	if err != nil {
		return nil, err
	}
	if body, err = sjson.SetRawBytes(body, "messages", encoded); err != nil {
		return nil, err
	}

	if len(specs) > 0 {
		params := make([]toolParam, len(specs))
		for i, s := range specs {
			params[i] = toolParam{Type: "function", Function: s}
		}
		encodedTools, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if body, err = sjson.SetRawBytes(body, "tools", encodedTools); err != nil {
			return nil, err
		}
	}

	if c.maxTokens > 0 {
		if body, err = sjson.SetBytes(body, "max_tokens", c.maxTokens); err != nil {
			return nil, err
		}
	}
	if c.temperature > 0 {
		if body, err = sjson.SetBytes(body, "temperature", c.temperature); err != nil {
			return nil, err
		}
	}

	return body, nil
}

// classify maps an SDK error to ProviderError for HTTP error statuses and to
// NetworkError for everything else.
func (c *OpenAIClient) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = strconv.Itoa(apiErr.StatusCode)
		}
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &ProviderError{Code: code, Message: msg, StatusCode: apiErr.StatusCode}
	}
	return &NetworkError{Provider: c.provider, Err: err}
}

// parseResponse extracts choices[0].message from a chat-completion body. An
// error object in the body wins over any choices.
func parseResponse(raw []byte) (Message, error) {
	if !gjson.ValidBytes(raw) {
		return Message{}, &ProtocolError{Reason: "failed to parse JSON response", Body: truncateBody(raw)}
	}

	res := gjson.ParseBytes(raw)
	if e := res.Get("error"); e.Exists() && e.Type != gjson.Null {
		return Message{}, providerError(e)
	}

	choice := res.Get("choices.0.message")
	if !choice.IsObject() {
		return Message{}, &ProtocolError{Reason: "no choices in LLM response", Body: truncateBody(raw)}
	}

	// Some backends send arguments as an object instead of a JSON string.
	msgJSON := choice.Raw
	var setErr error
	choice.Get("tool_calls").ForEach(func(key, tc gjson.Result) bool {
		if args := tc.Get("function.arguments"); args.IsObject() {
			msgJSON, setErr = sjson.Set(msgJSON, "tool_calls."+key.String()+".function.arguments", args.Raw)
		}
		return setErr == nil
	})
	if setErr != nil {
		return Message{}, &ProtocolError{Reason: "failed to normalize tool call arguments", Err: setErr}
	}

	var msg Message
	if err := json.Unmarshal([]byte(msgJSON), &msg); err != nil {
		return Message{}, &ProtocolError{Reason: "failed to map LLM response", Body: truncateBody(raw), Err: err}
	}

	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = newToolCallID()
		}
		if msg.ToolCalls[i].Type == "" {
			msg.ToolCalls[i].Type = "function"
		}
	}

	return msg, nil
}

func providerError(e gjson.Result) *ProviderError {
	pe := &ProviderError{Code: "no code", Message: "Unknown API Error"}
	if e.Type == gjson.String {
		pe.Message = e.String()
		return pe
	}
	if m := e.Get("message"); m.Exists() && m.String() != "" {
		pe.Message = m.String()
	}
	if c := e.Get("code"); c.Exists() && c.Type != gjson.Null {
		pe.Code = c.String()
	}
	return pe
}

func newToolCallID() string {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("call_%d", time.Now().UnixNano())
	}
	return "call_" + id
}
