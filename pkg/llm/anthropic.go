package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/harun/redclaw/pkg/tools"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient adapts the chat-completion transcript to the Anthropic
// Messages API and maps the reply back.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	logger      zerolog.Logger
}

// NewAnthropicClient creates a client for the Anthropic API. opts.APIBase,
// when set, replaces the default endpoint.
func NewAnthropicClient(opts Options) (*AnthropicClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic api_key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.APIBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(normalizeBase(opts.APIBase)))
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(reqOpts...),
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		logger:      opts.Logger.With().Str("component", "llm").Str("provider", "anthropic").Logger(),
	}, nil
}

// Chat converts messages, calls the Messages API and returns the reply as an
// assistant message. tool_use blocks become tool calls.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, specs []tools.Spec) (Message, error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerLLM, "llm.chat",
		attribute.String("provider", "anthropic"),
		attribute.String("model", c.model),
		attribute.Int("messages", len(messages)),
		attribute.Int("tools", len(specs)),
	)
	logger := tracing.LoggerFromContext(ctx, c.logger)

	start := time.Now()
	reply, err := c.chat(ctx, messages, specs)
	duration := time.Since(start)

	observability.RecordModelCall("anthropic", duration, err == nil)
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

func (c *AnthropicClient) chat(ctx context.Context, messages []Message, specs []tools.Spec) (Message, error) {
	params, err := c.buildParams(messages, specs)
	if err != nil {
		return Message{}, err
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Message{}, anthropicProviderError(apiErr.StatusCode, apiErr.RawJSON())
		}
		return Message{}, &NetworkError{Provider: "anthropic", Err: err}
	}

	var text strings.Builder
	var calls []ToolCall
	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			args := b.JSON.Input.Raw()
			if args == "" {
				args = "{}"
			}
			calls = append(calls, ToolCall{
				ID:       b.ID,
				Type:     "function",
				Function: FunctionCall{Name: b.Name, Arguments: args},
			})
		}
	}

	reply := Message{Role: RoleAssistant, ToolCalls: calls}
	if text.Len() > 0 || len(calls) == 0 {
		reply.Content = String(text.String())
	}
	return reply, nil
}

func (c *AnthropicClient) buildParams(messages []Message, specs []tools.Spec) (anthropic.MessageNewParams, error) {
	var system []string
	var converted []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	// Consecutive tool results are sent together in one user turn.
	flushResults := func() {
		if len(pendingResults) > 0 {
			converted = append(converted, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range messages {
		if msg.Role == RoleTool {
			pendingResults = append(pendingResults,
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Text(), false))
			continue
		}
		flushResults()

		switch msg.Role {
		case RoleSystem:
			if t := msg.Text(); t != "" {
				system = append(system, t)
			}
		case RoleUser:
			// The Messages API rejects empty text blocks.
			if t := msg.Text(); t != "" {
				converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(t)))
			}
		case RoleAssistant:
			blocks := []anthropic.ContentBlockParamUnion{}
			if t := msg.Text(); t != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t))
			}
			for _, tc := range msg.ToolCalls {
				args, err := tc.ParseArguments()
				if err != nil {
					args = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Function.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			converted = append(converted, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		}
	}
	flushResults()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  converted,
		MaxTokens: int64(c.maxTokens),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	if len(specs) > 0 {
		toolParams := make([]anthropic.ToolUnionParam, 0, len(specs))
		for _, s := range specs {
			tp := anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: s.Parameters["properties"],
					Required:   requiredFields(s.Parameters["required"]),
				},
			}
			toolParams = append(toolParams, anthropic.ToolUnionParam{OfTool: &tp})
		}
		params.Tools = toolParams
	}

	return params, nil
}

func requiredFields(v interface{}) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// anthropicProviderError keeps the backend's error type and message from
// body, falling back to the HTTP status when they are absent.
func anthropicProviderError(status int, body string) *ProviderError {
	pe := &ProviderError{
		Code:       strconv.Itoa(status),
		Message:    http.StatusText(status),
		StatusCode: status,
	}
	e := gjson.Get(body, "error")
	if t := e.Get("type"); t.Exists() && t.String() != "" {
		pe.Code = t.String()
	}
	if m := e.Get("message"); m.Exists() && m.String() != "" {
		pe.Message = m.String()
	}
	return pe
}
