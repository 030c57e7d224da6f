package telegram

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const greeting = "Hi, I'm RedClaw. Send me a message and I'll get to work.\nUse /reset to start a fresh conversation."

// CommandFunc handles one bot command.
type CommandFunc func(ctx context.Context, msg *tgbotapi.Message) error

type command struct {
	description string
	handler     CommandFunc
}

// Commands maps slash commands to handlers. Commands without a handler are
// passed to the agent as ordinary text.
type Commands struct {
	logger   zerolog.Logger
	handlers map[string]command
}

// NewCommands creates an empty command table.
func NewCommands(logger zerolog.Logger) *Commands {
	return &Commands{
		logger:   logger.With().Str("module", "commands").Logger(),
		handlers: make(map[string]command),
	}
}

// Register registers a command handler
func (c *Commands) Register(name, description string, handler CommandFunc) {
	c.handlers[name] = command{description: description, handler: handler}
	c.logger.Debug().Str("command", name).Msg("Command registered")
}

// Lookup returns the handler for name.
func (c *Commands) Lookup(name string) (CommandFunc, bool) {
	cmd, ok := c.handlers[name]
	return cmd.handler, ok
}

// Names returns the registered commands, sorted.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Publish sets the bot's command menu in Telegram.
func (c *Commands) Publish(api API) error {
	names := c.Names()
	list := make([]tgbotapi.BotCommand, 0, len(names))
	for _, name := range names {
		list = append(list, tgbotapi.BotCommand{Command: name, Description: c.handlers[name].description})
	}

	if _, err := api.Request(tgbotapi.NewSetMyCommands(list...)); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Debug().Int("count", len(list)).Msg("Bot commands updated")
	return nil
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	return b.Send(msg.Chat.ID, greeting)
}

func (b *Bot) handleReset(ctx context.Context, msg *tgbotapi.Message) error {
	if b.sessions == nil {
		return b.Send(msg.Chat.ID, "Sessions cannot be reset on this bot.")
	}

	key := strconv.FormatInt(msg.Chat.ID, 10)
	if err := b.sessions.Delete(ctx, key); err != nil {
		b.logger.Error().Err(err).Str("session_key", key).Msg("Failed to reset session")
		return b.Send(msg.Chat.ID, fmt.Sprintf("Failed to reset session: %v", err))
	}

	b.logger.Info().Str("session_key", key).Msg("Session reset")
	return b.Send(msg.Chat.ID, "Conversation cleared.")
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	if b.sessions == nil {
		return b.Send(msg.Chat.ID, "Sessions are not stored on this bot.")
	}

	key := strconv.FormatInt(msg.Chat.ID, 10)
	sess, err := b.sessions.Load(ctx, key)
	if err != nil {
		b.logger.Error().Err(err).Str("session_key", key).Msg("Failed to load session")
		return b.Send(msg.Chat.ID, fmt.Sprintf("Failed to load session: %v", err))
	}
	if sess == nil || len(sess.Messages) == 0 {
		return b.Send(msg.Chat.ID, "Nothing to summarize yet.")
	}

	if err := b.sendTyping(msg.Chat.ID); err != nil {
		b.logger.Debug().Err(err).Msg("Typing indicator failed")
	}

	summary, err := b.summarizer.Summarize(ctx, sess.Messages)
	if err != nil {
		b.logger.Error().Err(err).Str("session_key", key).Msg("Summary failed")
		return b.Send(msg.Chat.ID, fmt.Sprintf("Agent Error: %v", err))
	}
	if summary == "" {
		summary = noTextResponse
	}
	return b.Send(msg.Chat.ID, summary)
}
