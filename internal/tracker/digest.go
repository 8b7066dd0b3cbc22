package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const sendTimeout = 10 * time.Second

// MessageSender is the outbound send capability. *bot.Bot satisfies it.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Dispatcher renders correlation results into a digest and delivers it to
// the admin recipient. Delivery is best-effort: shadow state is committed
// before dispatch, and a send failure is logged and dropped.
type Dispatcher struct {
	sender      MessageSender
	logger      *slog.Logger
	adminUserID int64
	enabled     bool
}

// NewDispatcher creates a Dispatcher targeting adminUserID. When enabled
// is false, Dispatch becomes a no-op.
func NewDispatcher(sender MessageSender, logger *slog.Logger, adminUserID int64, enabled bool) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:      sender,
		logger:      logger.With("component", "dispatcher"),
		adminUserID: adminUserID,
		enabled:     enabled,
	}
}

// Dispatch sends the digest for one correlation result. The send runs in
// its own goroutine with its own timeout so a slow notification path never
// stalls correlation of later signals. Results without facts are skipped.
func (d *Dispatcher) Dispatch(res Result) {
	if !d.enabled || len(res.Facts) == 0 {
		return
	}

	text := FormatDigest(res)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		_, err := d.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: d.adminUserID,
			Text:   text,
		})
		if err != nil {
			d.logger.Error("Failed to send deletion digest",
				"chat_id", res.ChatID, "facts", len(res.Facts), "error", err)
			return
		}
		d.logger.Info("Deletion digest sent",
			"chat_id", res.ChatID, "facts", len(res.Facts), "overflow", res.Overflow)
	}()
}

// FormatDigest renders a human-scannable digest for one correlation
// result: a headline with the deletion count and chat, one block per fact,
// and a trailer when facts were truncated.
func FormatDigest(res Result) string {
	var sb strings.Builder

	total := len(res.Transitioned)
	fmt.Fprintf(&sb, "🗑️ %d message(s) deleted in chat %d\n\n", total, res.ChatID)

	for i, fact := range res.Facts {
		display := fact.DisplayName
		if fact.Username != "" {
			display += " (@" + fact.Username + ")"
		}
		fmt.Fprintf(&sb, "%d. %s (ID: %d)\n", i+1, display, fact.UserID)
		fmt.Fprintf(&sb, "💬 `%s`\n\n", fact.TextPreview)
	}

	if res.Overflow > 0 {
		fmt.Fprintf(&sb, "... and %d more messages", res.Overflow)
	}

	return strings.TrimRight(sb.String(), "\n")
}
