package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mostrador/mostrador/internal/reservations"
	"github.com/mostrador/mostrador/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReservationExpire sweeps reservations whose event date passed.
	TaskReservationExpire = "reservation:expire"
	// TaskIdempotencyCleanup prunes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReservationExpirePayload parameterises the expiry sweep.
type ReservationExpirePayload struct {
	Grace time.Duration `json:"grace"`
}

// NewReservationExpireTask constructs the expiry sweep task.
func NewReservationExpireTask(grace time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(ReservationExpirePayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationExpire, data), nil
}

// IdempotencyCleanupPayload parameterises key pruning.
type IdempotencyCleanupPayload struct {
	TTL time.Duration `json:"ttl"`
}

// NewIdempotencyCleanupTask constructs the key-pruning task.
func NewIdempotencyCleanupTask(ttl time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{TTL: ttl})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// HandleReservationExpire returns the asynq handler for the expiry sweep.
func HandleReservationExpire(workflow *reservations.Workflow, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReservationExpirePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Grace <= 0 {
			payload.Grace = 48 * time.Hour
		}
		expired, err := workflow.ExpireOverdue(ctx, payload.Grace)
		if err != nil {
			return err
		}
		if expired > 0 {
			logger.Info("expired reservations", slog.Int("count", expired))
		}
		return nil
	}
}

// HandleIdempotencyCleanup returns the asynq handler for key pruning.
func HandleIdempotencyCleanup(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.TTL <= 0 {
			payload.TTL = 24 * time.Hour
		}
		removed, err := store.Cleanup(ctx, payload.TTL)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("pruned idempotency keys", slog.Int64("count", removed))
		}
		return nil
	}
}
