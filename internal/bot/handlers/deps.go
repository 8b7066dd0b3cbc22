package handlers

import (
	"log/slog"

	"github.com/edgard/xeretabot/internal/config"
	"github.com/edgard/xeretabot/internal/database"
	"github.com/edgard/xeretabot/internal/tracker"
)

// HandlerDeps provides dependencies for Telegram update and command
// handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Recorder   *tracker.Recorder
	Correlator *tracker.Correlator
	Dispatcher *tracker.Dispatcher
}
