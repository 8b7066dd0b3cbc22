package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "help")

	if update.Message == nil {
		return
	}

	log.InfoContext(ctx, "Handling /help command", "chat_id", update.Message.Chat.ID)

	reply(ctx, b, log, update.Message.Chat.ID,
		"🤖 Deleted messages monitor - help\n\n"+
			"Available commands:\n"+
			"/search <user_id> - Search deleted messages by user ID\n"+
			"/stats - View shadow cache statistics\n"+
			"/debug - Show recent messages in the cache\n"+
			"/help - Show this help message\n\n"+
			"How to get a user ID:\n"+
			"Forward a message from the user to @userinfobot and it will reply with their numeric ID.")
}
