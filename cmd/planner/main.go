package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/api"
	"github.com/Kerhoff/planner/internal/config"
	"github.com/Kerhoff/planner/internal/handlers"
	"github.com/Kerhoff/planner/internal/repository"
	"github.com/Kerhoff/planner/internal/repository/memory"
	"github.com/Kerhoff/planner/internal/repository/postgres"
	"github.com/Kerhoff/planner/internal/service"
	"github.com/Kerhoff/planner/internal/telegram"
	"github.com/Kerhoff/planner/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting planner...")

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Storage
	var store repository.Store
	if cfg.DatabaseURL != "" {
		db, err := config.NewDatabase(ctx, cfg, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}
		store = postgres.NewStore(db.DB)
	} else {
		l.Warn("DATABASE_URL is not set, data is kept in memory only")
		store = memory.NewStore()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Service layer
	svc := service.New(store, l,
		service.WithDefaultTimezone(cfg.DefaultTimezone),
		service.WithMetrics(service.NewMetrics(registry)),
	)

	refresher, err := service.NewHorizonRefresher(svc, cfg.HorizonRefreshCron, l)
	if err != nil {
		l.Fatalf("Failed to schedule memorable refresh: %v", err)
	}
	refresher.Start()
	defer refresher.Stop()

	// HTTP API
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(httpServer, "HTTP API", l)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(metricsServer, "Metrics", l)

	// Telegram bot
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", "Set up your calendar", handlers.NewStartHandler(svc, l))
		bot.RegisterCommand("help", "Show all commands", handlers.NewHelpHandler(l))

		// Planning
		bot.RegisterCommand("plan", "Create or show a month plan", handlers.NewPlanHandler(svc, l))
		bot.RegisterCommand("routines", "Set a month's routines", handlers.NewRoutinesHandler(svc, l))
		bot.RegisterCommand("unscheduled", "Items waiting for a slot", handlers.NewUnscheduledHandler(svc, l))

		// Calendar
		bot.RegisterCommand("agenda", "Show your agenda", handlers.NewAgendaHandler(svc, l))
		bot.RegisterCommand("ics", "Export your calendar", handlers.NewExportHandler(svc, l))

		// Settings
		bot.RegisterCommand("tz", "Move items to a new timezone", handlers.NewTimezoneHandler(svc, l))
		bot.RegisterCommand("birthday", "Set your birthday", handlers.NewBirthdayHandler(svc, l))
		bot.RegisterCommand("sleep", "Set sleep hours", handlers.NewSleepHandler(svc, l))
		bot.RegisterCommand("limits", "Daily hour limits", handlers.NewLimitsHandler(svc, l))

		if err := bot.PublishCommands(); err != nil {
			l.WithError(err).Warn("Failed to publish bot commands")
		}

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		l.Info("TELEGRAM_TOKEN is not set, bot disabled")
	}

	l.Info("Planner started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.WithError(err).Warn("HTTP server shutdown failed")
		}
	}

	l.Info("Planner stopped")
}

func serve(srv *http.Server, name string, l *logrus.Logger) {
	l.Infof("%s listening on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Errorf("%s server error: %v", name, err)
		os.Exit(1)
	}
}
