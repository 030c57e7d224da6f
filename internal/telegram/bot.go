package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/redclaw/internal/config"
	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/pkg/llm"
	"github.com/harun/redclaw/pkg/session"
	"github.com/rs/zerolog"
)

const (
	// ChannelName labels Telegram traffic in logs, traces and metrics.
	ChannelName = "telegram"
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout = 30
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Runner answers one user message within a session.
type Runner interface {
	Run(ctx context.Context, sessionKey, text string) (string, error)
}

// Summarizer condenses a conversation; when the runner implements it the
// bot offers /summary.
type Summarizer interface {
	Summarize(ctx context.Context, messages []llm.Message) (string, error)
}

// Sessions reads and forgets chat sessions for /summary and /reset.
type Sessions interface {
	Load(ctx context.Context, key string) (*session.Session, error)
	Delete(ctx context.Context, key string) error
}

// Bot represents a Telegram bot instance
type Bot struct {
	api        API
	self       tgbotapi.User
	allow      *AllowList
	runner     Runner
	sessions   Sessions
	summarizer Summarizer
	commands   *Commands
	logger     zerolog.Logger
}

// New authenticates against the Bot API with cfg.Token.
func New(cfg config.TelegramConfig, runner Runner, sessions Sessions, logger zerolog.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot, err := NewWithAPI(api, api.Self, cfg.AllowFrom, runner, sessions, logger)
	if err != nil {
		return nil, err
	}

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// NewWithAPI builds a bot on an existing API client.
func NewWithAPI(api API, self tgbotapi.User, allowFrom []string, runner Runner, sessions Sessions, logger zerolog.Logger) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("telegram API is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	observability.EnsureRegistered()

	b := &Bot{
		api:      api,
		self:     self,
		allow:    NewAllowList(allowFrom),
		runner:   runner,
		sessions: sessions,
		logger:   logger.With().Str("component", "telegram").Logger(),
	}
	b.commands = NewCommands(b.logger)
	b.commands.Register("start", "Show a greeting", b.handleStart)
	b.commands.Register("reset", "Forget this chat's conversation", b.handleReset)
	if summarizer, ok := runner.(Summarizer); ok {
		b.summarizer = summarizer
		b.commands.Register("summary", "Summarize this chat's conversation", b.handleSummary)
	}

	return b, nil
}

// Run long-polls for updates and handles them one at a time until ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.commands.Publish(b.api); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to publish bot commands")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = PollTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info().
		Bool("allow_all", b.allow.Open()).
		Msg("Telegram bot started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				b.logger.Error().
					Err(err).
					Int("update_id", update.UpdateID).
					Msg("Failed to handle update")
			}
		}
	}
}

// Self returns the bot's own account.
func (b *Bot) Self() tgbotapi.User {
	return b.self
}

// Send delivers text to chatID in chunks of at most MaxMessageLength runes.
// Each chunk is tried as MarkdownV2, then Markdown, then plain text.
func (b *Bot) Send(chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if err := b.sendChunk(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

var parseModes = []string{tgbotapi.ModeMarkdownV2, tgbotapi.ModeMarkdown, ""}

func (b *Bot) sendChunk(chatID int64, text string) error {
	var lastErr error
	for _, mode := range parseModes {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = mode

		if _, err := b.api.Send(msg); err != nil {
			lastErr = err
			b.logger.Debug().
				Err(err).
				Int64("chat_id", chatID).
				Str("parse_mode", mode).
				Msg("Send rejected, retrying with plainer formatting")
			continue
		}

		observability.RecordChannelMessage(ChannelName, "sent")
		b.logger.Debug().
			Int64("chat_id", chatID).
			Str("parse_mode", mode).
			Int("length", len(text)).
			Msg("Message sent")
		return nil
	}
	return fmt.Errorf("failed to send message: %w", lastErr)
}

// sendTyping shows the typing indicator. sendChatAction answers with a bare
// boolean, so it goes through Request rather than Send.
func (b *Bot) sendTyping(chatID int64) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}
