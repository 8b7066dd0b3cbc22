// Package main contains the entrypoint for the xeretabot deleted-message
// monitor.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/xeretabot/internal/bot"
	"github.com/edgard/xeretabot/internal/bot/handlers"
	"github.com/edgard/xeretabot/internal/bot/tasks"
	"github.com/edgard/xeretabot/internal/config"
	"github.com/edgard/xeretabot/internal/database"
	"github.com/edgard/xeretabot/internal/logger"
	"github.com/edgard/xeretabot/internal/telegram"
	"github.com/edgard/xeretabot/internal/tracker"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, tracker pipeline, bot, scheduler), handles graceful shutdown, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	recorder := tracker.NewRecorder(store, log, cfg.Telegram.AdminUserID, cfg.Tracker.SaveMediaMessages)
	correlator := tracker.NewCorrelator(store, log)

	hDeps := &handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Recorder:   recorder,
		Correlator: correlator,
		// Dispatcher is wired below, once the Telegram client exists.
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewUpdateHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	hDeps.Dispatcher = tracker.NewDispatcher(tg, log, cfg.Telegram.AdminUserID, cfg.Tracker.NotifyDeletions)

	cmdHandlers := handlers.RegisterAllCommands(*hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
		Sender: tg,
	}

	sched := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	app := bot.NewBot(log, cfg, db, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
