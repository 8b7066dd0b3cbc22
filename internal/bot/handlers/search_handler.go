package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewSearchHandler returns a handler for the /search command: it lists
// the deleted messages captured for a given user id, newest first.
func NewSearchHandler(deps HandlerDeps) bot.HandlerFunc {
	return searchHandler{deps}.Handle
}

type searchHandler struct {
	deps HandlerDeps
}

func (h searchHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "search")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		reply(ctx, b, log, chatID,
			"Please provide a user ID to search for.\n\n"+
				"Usage: /search <user_id>\n"+
				"Example: /search 123456789")
		return
	}

	userID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || userID <= 0 {
		reply(ctx, b, log, chatID, fmt.Sprintf("Invalid user ID: %s", args[1]))
		return
	}

	log.InfoContext(ctx, "Handling /search command", "target_user_id", userID)

	deleted, err := h.deps.Store.GetDeletedByUser(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to search deleted messages", "user_id", userID, "error", err)
		reply(ctx, b, log, chatID, "An error occurred while searching. Please try again later.")
		return
	}

	if len(deleted) == 0 {
		reply(ctx, b, log, chatID, fmt.Sprintf("❌ No deleted messages found for user ID: %d", userID))
		return
	}

	maxResults := h.deps.Config.Tracker.MaxSearchResults
	maxLength := h.deps.Config.Tracker.MaxDisplayLength

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗑️ Deleted messages for user ID: %d\n\n", userID)

	shown := deleted
	if len(shown) > maxResults {
		shown = shown[:maxResults]
	}

	for i, msg := range shown {
		var nameParts []string
		if msg.FirstName.Valid && msg.FirstName.String != "" {
			nameParts = append(nameParts, msg.FirstName.String)
		}
		if msg.LastName.Valid && msg.LastName.String != "" {
			nameParts = append(nameParts, msg.LastName.String)
		}
		if msg.Username.Valid && msg.Username.String != "" {
			nameParts = append(nameParts, "(@"+msg.Username.String+")")
		}
		name := "Unknown User"
		if len(nameParts) > 0 {
			name = strings.Join(nameParts, " ")
		}

		chatTitle := "Private"
		if msg.ChatTitle.Valid && msg.ChatTitle.String != "" {
			chatTitle = msg.ChatTitle.String
		}

		text := "No text"
		if msg.Content.Valid && msg.Content.String != "" {
			text = truncateRunes(msg.Content.String, maxLength)
		}

		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		fmt.Fprintf(&sb, "📍 Chat: %s\n", chatTitle)
		fmt.Fprintf(&sb, "💬 Message: `%s`\n", text)
		fmt.Fprintf(&sb, "🕐 Sent: %s\n", msg.SentAt.Format("2006-01-02 15:04"))
		if msg.DeletedAt.Valid {
			fmt.Fprintf(&sb, "🗑️ Deleted: %s\n", msg.DeletedAt.Time.Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n")
	}

	if len(deleted) > maxResults {
		fmt.Fprintf(&sb, "... and %d more messages", len(deleted)-maxResults)
	}

	reply(ctx, b, log, chatID, strings.TrimRight(sb.String(), "\n"))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
