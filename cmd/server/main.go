package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/clients/analyst"
	"github.com/aristath/newsguard/internal/config"
	"github.com/aristath/newsguard/internal/database"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/alerts"
	"github.com/aristath/newsguard/internal/modules/briefing"
	"github.com/aristath/newsguard/internal/modules/calendar"
	"github.com/aristath/newsguard/internal/modules/market"
	"github.com/aristath/newsguard/internal/modules/preferences"
	"github.com/aristath/newsguard/internal/modules/rules"
	"github.com/aristath/newsguard/internal/modules/syncer"
	"github.com/aristath/newsguard/internal/scheduler"
	"github.com/aristath/newsguard/internal/server"
	"github.com/aristath/newsguard/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting NewsGuard")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Event bus
	bus := events.NewBus()
	eventManager := events.NewManager(bus, log)

	// In-memory state
	calendarRepo := calendar.New(log)
	marketStore := market.NewStore(log)
	ruleEvaluator := rules.NewEvaluator(log)

	// Preferences
	prefsRepo := preferences.NewRepository(db.Conn(), log)
	prefsService, err := preferences.NewService(prefsRepo, eventManager, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load preferences")
	}

	// External analyst client
	analystClient := analyst.NewClient(cfg.AnalystURL, cfg.AnalystAPIKey, log)

	// Sync service, restoring last-known-good data from disk
	syncService := syncer.New(syncer.Config{
		Log:        log,
		Gateway:    analystClient,
		Calendar:   calendarRepo,
		Market:     marketStore,
		Prefs:      prefsService,
		Events:     eventManager,
		Snapshot:   syncer.NewSnapshotCache(cfg.SnapshotPath),
		StaleAfter: cfg.StaleAfter,
	})
	syncService.Restore()

	// Briefing narratives
	briefingService := briefing.New(analystClient, calendarRepo, marketStore, prefsService, log)

	// Push restriction transitions to the stream
	watcher := rules.NewWatcher(ruleEvaluator, calendarRepo, prefsService, eventManager, log)
	watcher.Recheck()

	// Alert dispatcher
	ledger := alerts.NewLedger(db.Conn(), log)
	notifier := alerts.NewCommandNotifier(cfg.NotifyCommand, log)
	dispatcher := alerts.NewDispatcher(alerts.DispatcherConfig{
		Log:          log,
		Calendar:     calendarRepo,
		Prefs:        prefsService,
		Ledger:       ledger,
		Notifier:     notifier,
		Events:       eventManager,
		PollInterval: cfg.NotifyPollInterval,
		PollSlack:    cfg.NotifyPollSlack,
	})
	dispatcher.Start()
	defer dispatcher.Stop()

	// Background jobs
	sched := scheduler.New(log)
	if err := registerJobs(sched, syncService, ledger, db, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		Config:   cfg,
		Calendar: calendarRepo,
		Market:   marketStore,
		Rules:    ruleEvaluator,
		Prefs:    prefsService,
		Syncer:   syncService,
		Briefing: briefingService,
		Notifier: notifier,
		Events:   eventManager,
		DevMode:  cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// First sync on startup, but only once the user has been through
	// onboarding; before that there is nothing to track yet.
	if prefsService.Onboarded() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := syncService.RequestSync(ctx, false); err != nil {
				log.Warn().Err(err).Msg("Startup sync failed")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	syncService *syncer.Service,
	ledger *alerts.Ledger,
	db *database.DB,
	cfg *config.Config,
	log zerolog.Logger,
) error {
	if err := sched.AddJob(cfg.StalenessReschedule, scheduler.NewStalenessCheckJob(syncService, 2*time.Minute, log)); err != nil {
		return err
	}
	if err := sched.AddJob("@hourly", scheduler.NewLedgerPruneJob(ledger, cfg.LedgerGrace, log)); err != nil {
		return err
	}
	return sched.AddJob("@every 6h", scheduler.NewHealthCheckJob(db, log))
}
