// Package tasks contains the scheduled task implementations and their
// registry.
package tasks

import (
	"log/slog"

	"github.com/edgard/xeretabot/internal/config"
	"github.com/edgard/xeretabot/internal/database"
	"github.com/edgard/xeretabot/internal/tracker"
)

// TaskDeps provides dependencies for scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Sender tracker.MessageSender
}
