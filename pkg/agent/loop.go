package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/harun/redclaw/pkg/commandqueue"
	"github.com/harun/redclaw/pkg/llm"
	"github.com/harun/redclaw/pkg/session"
	"github.com/harun/redclaw/pkg/tools"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Defaults applied when Config leaves the limits at zero.
const (
	DefaultMaxIterations = 10
	DefaultHistoryWindow = 10
)

// ContextSource provides the memory block of the system prompt and records
// finished exchanges.
type ContextSource interface {
	ContextBlock() string
	AppendToday(content string) error
}

// BootstrapSource renders the workspace bootstrap documents.
type BootstrapSource interface {
	Render() string
}

// Config holds the loop's collaborators and limits.
type Config struct {
	Client    llm.Client
	Tools     *tools.Registry
	Sessions  session.Store
	Context   ContextSource
	Bootstrap BootstrapSource
	// Queue serializes runs per session key. When nil the loop owns a
	// private queue, released by Close.
	Queue         *commandqueue.CommandQueue
	MaxIterations int
	HistoryWindow int
	Logger        zerolog.Logger
}

// Loop drives one conversation turn at a time per session.
type Loop struct {
	client        llm.Client
	tools         *tools.Registry
	sessions      session.Store
	context       ContextSource
	bootstrap     BootstrapSource
	queue         *commandqueue.CommandQueue
	ownsQueue     bool
	maxIterations int
	historyWindow int
	logger        zerolog.Logger
}

// NewLoop validates cfg and creates a loop.
func NewLoop(cfg Config) (*Loop, error) {
	observability.EnsureRegistered()

	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Context == nil {
		return nil, fmt.Errorf("context store is required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations cannot be negative, got %d", cfg.MaxIterations)
	}
	if cfg.HistoryWindow < 0 {
		return nil, fmt.Errorf("history window cannot be negative, got %d", cfg.HistoryWindow)
	}

	l := &Loop{
		client:        cfg.Client,
		tools:         cfg.Tools,
		sessions:      cfg.Sessions,
		context:       cfg.Context,
		bootstrap:     cfg.Bootstrap,
		queue:         cfg.Queue,
		maxIterations: cfg.MaxIterations,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger.With().Str("component", "agent").Logger(),
	}
	if l.maxIterations == 0 {
		l.maxIterations = DefaultMaxIterations
	}
	if l.historyWindow == 0 {
		l.historyWindow = DefaultHistoryWindow
	}
	if l.queue == nil {
		l.queue = commandqueue.New(cfg.Logger)
		l.ownsQueue = true
	}

	return l, nil
}

// Close releases the private queue, if the loop created one.
func (l *Loop) Close() error {
	if l.ownsQueue {
		return l.queue.Close()
	}
	return nil
}

// Run feeds userText into the session identified by sessionKey and returns
// the final answer. Only model failures inside the iteration budget are
// returned as errors, wrapped in ErrModelUnavailable or ErrProtocol; in that
// case the session is left untouched.
func (l *Loop) Run(ctx context.Context, sessionKey, userText string) (string, error) {
	if err := session.ValidateKey(sessionKey); err != nil {
		return "", err
	}

	ctx = tracing.NewRunContext(ctx, sessionKey)
	value, err := l.queue.Enqueue(ctx, "session-"+sessionKey, func(ctx context.Context) (interface{}, error) {
		return l.run(ctx, sessionKey, userText)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (l *Loop) run(ctx context.Context, sessionKey, userText string) (answer string, err error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerAgent, "agent.run", attribute.String("session_key", sessionKey))
	logger := tracing.LoggerFromContext(ctx, l.logger)
	start := time.Now()

	r := l.newRun(ctx, sessionKey, logger)
	defer func() {
		span.SetAttributes(
			attribute.Int("round_trips", r.roundTrips),
			attribute.Bool("forced_fallback", r.forced),
		)
		tracing.EndSpan(span, err)
		observability.RecordAgentRun(time.Since(start), r.roundTrips, r.forced, err == nil)
	}()

	r.record(llm.UserMessage(userText))
	logger.Debug().
		Int("history", r.session.Len()-1).
		Int("transcript", len(r.transcript)).
		Msg("Run started")

	if err := r.drive(ctx); err != nil {
		logger.Error().Err(err).Int("round_trips", r.roundTrips).Msg("Run aborted")
		return "", err
	}

	if r.answer != "" {
		if err := l.context.AppendToday(dailyNoteEntry(userText, r.answer)); err != nil {
			logger.Warn().Err(err).Msg("Failed to append daily note")
		}
	}

	if err := l.sessions.Save(tracing.Detach(ctx), sessionKey, r.session); err != nil {
		logger.Error().Err(err).Msg("Failed to save session")
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	logger.Info().
		Int("round_trips", r.roundTrips).
		Int("tool_calls", r.toolCalls).
		Bool("forced_fallback", r.forced).
		Dur("duration", time.Since(start)).
		Msg("Run completed")

	return r.answer, nil
}

// newRun loads the session and assembles the transcript: system prompt, then
// the windowed history. A session that cannot be read starts empty.
func (l *Loop) newRun(ctx context.Context, sessionKey string, logger zerolog.Logger) *run {
	sess, err := l.sessions.Load(ctx, sessionKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load session, starting empty")
		sess = nil
	}
	if sess == nil {
		sess = session.NewSession()
	}

	bootstrap := ""
	if l.bootstrap != nil {
		bootstrap = l.bootstrap.Render()
	}

	history := Window(sess.Messages, l.historyWindow)
	transcript := make([]llm.Message, 0, len(history)+2)
	transcript = append(transcript, llm.SystemMessage(SystemPrompt(bootstrap, l.context.ContextBlock())))
	transcript = append(transcript, history...)

	return &run{
		loop:       l,
		session:    sess,
		transcript: transcript,
		specs:      l.tools.Definitions(),
		logger:     logger,
	}
}

// Summarize asks the model for a short summary of the user and assistant
// turns in messages. No tools are offered.
func (l *Loop) Summarize(ctx context.Context, messages []llm.Message) (string, error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerAgent, "agent.summarize", attribute.Int("messages", len(messages)))

	prompt := summaryPrompt + formatConversation(messages)
	reply, err := l.client.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, nil)
	if err != nil {
		err = classifyModelError(err)
		tracing.EndSpan(span, err)
		return "", err
	}

	tracing.EndSpan(span, nil)
	return reply.Text(), nil
}
