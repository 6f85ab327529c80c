package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mostrador/mostrador/internal/app"
	"github.com/mostrador/mostrador/internal/catalog"
	"github.com/mostrador/mostrador/internal/platform/db"
	"github.com/mostrador/mostrador/internal/reservations"
	"github.com/mostrador/mostrador/internal/sales"
	"github.com/mostrador/mostrador/internal/shared"
	"github.com/mostrador/mostrador/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)
	catalogService := catalog.NewService(catalog.NewRepository(pool), nil)
	salesService := sales.NewService(sales.NewRepository(pool), auditLogger)
	reservationWorkflow := reservations.NewWorkflow(reservations.NewRepository(pool), catalogService, salesService, auditLogger)

	expireTask, err := jobs.NewReservationExpireTask(cfg.ReservationGrace)
	if err != nil {
		logger.Error("build expire task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyTTL)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReservationExpire, Handler: jobs.HandleReservationExpire(reservationWorkflow, logger)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.HandleIdempotencyCleanup(idempotency, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "13 * * * *", Task: expireTask},
			{Spec: "42 3 * * *", Task: cleanupTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
