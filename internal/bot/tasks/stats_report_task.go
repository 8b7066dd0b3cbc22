package tasks

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/edgard/xeretabot/internal/tracker"
)

// newStatsReportTask creates the scheduled task that sends the shadow
// cache statistics digest to the admin.
func newStatsReportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "stats_report")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled stats report task...")

		stats, err := deps.Store.GetStats(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Stats report task failed to compute stats", "error", err)
			return fmt.Errorf("stats report failed: %w", err)
		}

		_, err = deps.Sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: deps.Config.Telegram.AdminUserID,
			Text:   tracker.FormatStats(stats),
		})
		if err != nil {
			log.ErrorContext(ctx, "Stats report task failed to send digest", "error", err)
			return fmt.Errorf("stats report send failed: %w", err)
		}

		log.InfoContext(ctx, "Stats report sent",
			"deleted_messages", stats.DeletedMessages,
			"active_messages", stats.ActiveMessages)
		return nil
	}
}
