package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
)

const noTextResponse = "I processed your request but have no text response."

// HandleUpdate processes a single update. Only messages are handled; other
// update kinds are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	ctx = tracing.NewRequestContext(ctx, ChannelName)
	logger := tracing.LoggerFromContext(ctx, b.logger).With().Int64("chat_id", msg.Chat.ID).Logger()

	userID, username := senderOf(msg)
	if !b.allow.Allows(userID, username) {
		logger.Debug().
			Int64("user_id", userID).
			Str("username", username).
			Msg("Dropping message from unauthorized user")
		observability.RecordChannelMessage(ChannelName, "dropped")
		observability.RecordSecurityAudit(ctx, "telegram.message", actorOf(userID, username), "denied", map[string]interface{}{
			"chat_id": msg.Chat.ID,
		})
		return nil
	}

	observability.RecordChannelMessage(ChannelName, "received")

	if msg.IsCommand() {
		if handler, ok := b.commands.Lookup(msg.Command()); ok {
			logger.Debug().Str("command", msg.Command()).Msg("Command received")
			return handler(ctx, msg)
		}
	}

	text := msg.Text
	if strings.TrimSpace(text) == "" {
		logger.Debug().Msg("Ignoring message without text")
		return nil
	}

	logger.Info().
		Str("username", username).
		Int("length", len(text)).
		Msg("Message received")

	if err := b.sendTyping(msg.Chat.ID); err != nil {
		logger.Debug().Err(err).Msg("Typing indicator failed")
	}

	sessionKey := strconv.FormatInt(msg.Chat.ID, 10)
	answer, err := b.runner.Run(ctx, sessionKey, text)

	reply := answer
	switch {
	case err != nil:
		logger.Error().Err(err).Msg("Agent run failed")
		reply = fmt.Sprintf("Agent Error: %v", err)
	case strings.TrimSpace(answer) == "":
		reply = noTextResponse
	}

	return b.Send(msg.Chat.ID, reply)
}

func senderOf(msg *tgbotapi.Message) (int64, string) {
	if msg.From == nil {
		return 0, ""
	}
	return msg.From.ID, msg.From.UserName
}

func actorOf(userID int64, username string) string {
	if username != "" {
		return "@" + username
	}
	return strconv.FormatInt(userID, 10)
}
