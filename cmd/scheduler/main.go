package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chronoflow/scheduler/config"
	"github.com/chronoflow/scheduler/internal/adminapi"
	"github.com/chronoflow/scheduler/internal/adminapi/handler"
	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/executor"
	"github.com/chronoflow/scheduler/internal/health"
	ctxlog "github.com/chronoflow/scheduler/internal/log"
	"github.com/chronoflow/scheduler/internal/metrics"
	"github.com/chronoflow/scheduler/internal/notify"
	"github.com/chronoflow/scheduler/internal/scheduler"
	"github.com/chronoflow/scheduler/internal/store"
	"github.com/chronoflow/scheduler/internal/store/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		stop()
		log.Fatalf("default timezone: %v", err)
	}

	registry := store.NewCallableRegistry()
	registerDemoCallables(registry)

	sched := scheduler.New(
		scheduler.WithTimezone(loc),
		scheduler.WithTickMax(time.Duration(cfg.TickMaxSeconds)*time.Second),
		scheduler.WithLogger(logger),
	)

	metrics.Register()

	// The three executor variants spec.md §1 names: "default" (inline
	// async, registered by scheduler.New itself), "pool" (bounded thread
	// pool, sized off EXECUTOR_POOL_SIZE) and "process" (one OS process
	// per run). A job picks among them via executor_name.
	if err := sched.AddExecutor(ctx, executor.NewPool(logger, cfg.PoolSize), "pool"); err != nil {
		stop()
		log.Fatalf("register pool executor: %v", err)
	}
	processTimeout := time.Duration(cfg.ProcessTimeoutSeconds) * time.Second
	if err := sched.AddExecutor(ctx, executor.NewProcess(logger, processTimeout), "process"); err != nil {
		stop()
		log.Fatalf("register process executor: %v", err)
	}

	var pgPool *pgxpool.Pool
	var checker *health.Checker
	if cfg.DatabaseURL != "" {
		pgPool, err = postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		logger.Info("db connected")

		pgStore := postgres.NewStore(pgPool, registry, logger)
		if err := sched.AddStore(ctx, pgStore, "postgres"); err != nil {
			stop()
			log.Fatalf("register postgres store: %v", err)
		}
		checker = health.NewChecker(pgPool, logger, prometheus.DefaultRegisterer)
	} else {
		checker = health.NewChecker(nil, logger, prometheus.DefaultRegisterer)
	}

	alertListener := notify.NewAlertListener(
		notify.NewSender(cfg.Env, cfg.AlertResendAPIKey, cfg.AlertResendFrom, logger),
		cfg.AlertRecipients,
		logger,
	)
	sched.AddListener(domain.JobError, alertListener.Listen)
	sched.AddListener(domain.JobAdded|domain.JobRemoved, trackAlertingJobs(sched, alertListener))
	sched.AddListener(domain.All, eventLogger(logger))

	if err := sched.Start(ctx, false); err != nil {
		stop()
		log.Fatalf("scheduler start: %v", err)
	}

	jobHandler := handler.NewJobHandler(sched, logger)
	healthHandler := handler.NewHealthHandler(checker)
	router := adminapi.NewRouter(logger, jobHandler, healthHandler, []byte(cfg.AdminJWTSecret))
	adminSrv := &http.Server{Addr: ":" + cfg.AdminPort, Handler: router}
	go func() {
		logger.Info("admin api started", "port", cfg.AdminPort)
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin api", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Shutdown(shutdownCtx, true); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin api shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	if pgPool != nil {
		pgPool.Close()
	}

	logger.Info("scheduler shut down")
}

// trackAlertingJobs keeps notify.AlertListener's alert-worthy set in sync
// with job topology, since JOB_ERROR events carry only a job id.
func trackAlertingJobs(sched *scheduler.Scheduler, listener *notify.AlertListener) func(domain.Event) {
	return func(event domain.Event) {
		switch event.Code {
		case domain.JobAdded:
			job, err := sched.GetJob(context.Background(), event.JobID, event.StoreAlias)
			if err == nil && job.AlertOnError {
				listener.Track(job.ID)
			}
		case domain.JobRemoved:
			listener.Untrack(event.JobID)
		}
	}
}

func eventLogger(logger *slog.Logger) func(domain.Event) {
	return func(event domain.Event) {
		switch event.Code {
		case domain.JobError, domain.JobMissed, domain.JobMaxInstances:
			logger.Warn("scheduler event", "code", event.Code, "job_id", event.JobID)
		}
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
