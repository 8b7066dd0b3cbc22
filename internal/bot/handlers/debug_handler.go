package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const debugRecordLimit = 10

// NewDebugHandler returns a handler for the /debug command: it dumps the
// most recent shadow records regardless of state.
func NewDebugHandler(deps HandlerDeps) bot.HandlerFunc {
	return debugHandler{deps}.Handle
}

type debugHandler struct {
	deps HandlerDeps
}

func (h debugHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "debug")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	log.InfoContext(ctx, "Handling /debug command")

	recent, err := h.deps.Store.GetRecentMessages(ctx, debugRecordLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch recent records", "error", err)
		reply(ctx, b, log, chatID, "An error occurred while fetching records. Please try again later.")
		return
	}

	if len(recent) == 0 {
		reply(ctx, b, log, chatID, "🔍 Debug info\n\nNo messages found in database.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 Debug info - recent %d messages:\n\n", len(recent))

	for i, msg := range recent {
		status := "✅ ACTIVE"
		if msg.DeletedAt.Valid {
			status = "🗑️ DELETED"
		}

		username := "no_username"
		if msg.Username.Valid && msg.Username.String != "" {
			username = msg.Username.String
		}

		text := "No text"
		if msg.Content.Valid && msg.Content.String != "" {
			text = truncateRunes(msg.Content.String, 30)
		}

		fmt.Fprintf(&sb, "%d. ID: %d | User: %d\n", i+1, msg.MessageID, msg.UserID)
		fmt.Fprintf(&sb, "Name: %s (@%s)\n", msg.DisplayName(), username)
		fmt.Fprintf(&sb, "Chat: %d | Status: %s\n", msg.ChatID, status)
		fmt.Fprintf(&sb, "Text: %s\n\n", text)
	}

	reply(ctx, b, log, chatID, strings.TrimRight(sb.String(), "\n"))
}
