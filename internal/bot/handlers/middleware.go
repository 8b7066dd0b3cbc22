// Package handlers contains Telegram bot update and command handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that restricts a handler to the
// configured admin user. Commands from anyone else are ignored so the
// monitor stays unannounced in the chats it observes.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			userID := update.Message.From.ID
			if userID != deps.Config.Telegram.AdminUserID {
				deps.Logger.With("middleware", "AdminOnly").DebugContext(ctx,
					"Ignoring command from non-admin user",
					"user_id", userID, "chat_id", update.Message.Chat.ID)
				return
			}

			next(ctx, b, update)
		}
	}
}
