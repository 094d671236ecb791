// Command api runs the scheduling engine: the HTTP surface, the calendar
// reconciliation job, and the scheduled-message runner.
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/radiancemd/spa-scheduler/internal/api/router"
	"github.com/radiancemd/spa-scheduler/internal/appointments"
	"github.com/radiancemd/spa-scheduler/internal/calendar"
	"github.com/radiancemd/spa-scheduler/internal/catalog"
	appconfig "github.com/radiancemd/spa-scheduler/internal/config"
	"github.com/radiancemd/spa-scheduler/internal/http/handlers"
	"github.com/radiancemd/spa-scheduler/internal/messages"
	"github.com/radiancemd/spa-scheduler/internal/notify"
	"github.com/radiancemd/spa-scheduler/internal/observability/metrics"
	"github.com/radiancemd/spa-scheduler/internal/payments"
	"github.com/radiancemd/spa-scheduler/internal/reconcile"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting spa-scheduler",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	cal, err := calendar.NewGoogleProvider(ctx, cfg.CalendarID, cfg.CalendarCredentialsFile, loc, logger)
	if err != nil {
		logger.Error("failed to init google calendar", "error", err)
		os.Exit(1)
	}

	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	catalogStore := catalog.NewStore(pool)
	apptStore := appointments.NewStore(pool)
	msgStore := messages.NewStore(pool)
	payStore := payments.NewStore(pool)

	var sender notify.Sender = notify.LogSender{Logger: logger}
	if cfg.TelnyxAPIKey != "" && cfg.SMSFromNumber != "" {
		sender = notify.NewTelnyxSender(cfg.TelnyxAPIKey, cfg.SMSFromNumber, cfg.TelnyxProfile, logger)
	}

	var deposits payments.Deposits
	if cfg.SquareAccessToken != "" && cfg.SquareLocationID != "" {
		square := payments.NewSquareDeposits(cfg.SquareAccessToken, cfg.SquareLocationID, cfg.DepositSuccessURL, payStore, logger)
		if cfg.SquareBaseURL != "" {
			square = square.WithBaseURL(cfg.SquareBaseURL)
		}
		deposits = square
	} else {
		logger.Info("square not configured, deposits disabled")
	}

	msgScheduler := messages.NewScheduler(msgStore, catalogStore, loc, logger)
	confirmations := messages.NewConfirmations(catalogStore, sender, loc, logger)
	calc := appointments.NewCalculator(cal, catalogStore, loc, cfg.DefaultDurationMinutes, logger).
		WithSlotInterval(cfg.SlotIntervalMinutes)

	svc := appointments.NewService(appointments.ServiceParams{
		Store:         apptStore,
		Calculator:    calc,
		Rotator:       appointments.NewRotator(catalogStore, apptStore, logger),
		Dedupe:        appointments.NewDedupe(rdb, cfg.BookingDedupeTTL, logger),
		Policy:        appointments.NewCancellationPolicy(cfg.CancellationNoticeHrs, loc),
		Calendar:      cal,
		Catalog:       catalogStore,
		Scheduler:     msgScheduler,
		Confirmations: confirmations,
		Deposits:      deposits,
		Metrics:       m,
		Location:      loc,
		Logger:        logger,
	})

	reconciler := reconcile.New(apptStore, cal, msgScheduler, m, reconcile.Config{
		WindowDays: cfg.ReconcileWindowDays,
		Grace:      cfg.ReconcileGrace,
		Location:   loc,
	}, logger)

	runner := messages.NewRunner(msgStore, cal, sender, m,
		cfg.MessageWorkerCount, cfg.MessageBatchSize, logger)

	jobs, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create job scheduler", "error", err)
		os.Exit(1)
	}
	if _, err := jobs.NewJob(
		gocron.DurationJob(cfg.ReconcileInterval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), cfg.ReconcileInterval)
			defer cancel()
			if _, err := reconciler.ReconcileOnce(jobCtx); err != nil {
				logger.Error("reconcile pass failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		logger.Error("failed to schedule reconcile job", "error", err)
		os.Exit(1)
	}
	if _, err := jobs.NewJob(
		gocron.DurationJob(cfg.MessageRunnerInterval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), cfg.MessageRunnerInterval)
			defer cancel()
			if err := runner.ProcessDue(jobCtx); err != nil {
				logger.Error("message runner pass failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		logger.Error("failed to schedule message runner", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	r := router.New(&router.Config{
		Logger:             logger,
		Scheduling:         handlers.NewSchedulingHandler(svc, calc, logger),
		Admin:              handlers.NewAdminHandler(reconciler, msgStore, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		BookingRateLimit:   cfg.BookingRateLimit,
		BookingBurst:       cfg.BookingRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := jobs.Shutdown(); err != nil {
		logger.Error("job scheduler shutdown", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
