package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/platform/db"
	"github.com/mostrador/mostrador/internal/stock"
)

// Repository is the postgres-backed reservation store. Snapshot lines are
// kept as a JSONB document on the reservation row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetReservation loads a reservation with its snapshot lines.
func (r *Repository) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	var res Reservation
	var lineItems []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_ref, reservation_date, event_date, deposit_amount, state, line_items
		FROM reservation WHERE id = $1`, id).Scan(
		&res.ID, &res.CustomerRef, &res.ReservationDate, &res.EventDate,
		&res.DepositAmount, &res.State, &lineItems,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if err := json.Unmarshal(lineItems, &res.Lines); err != nil {
		return nil, fmt.Errorf("decode reservation lines: %w", err)
	}
	return &res, nil
}

// ListOverdue returns ids of active reservations whose event date is
// before the cutoff.
func (r *Repository) ListOverdue(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM reservation WHERE state = 'active' AND event_date < $1`, before)
	if err != nil {
		return nil, fmt.Errorf("list overdue reservations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WithTx runs fn inside one transaction using the shared options.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, db.DefaultTxOptions)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) InsertReservation(ctx context.Context, res Reservation) error {
	lineItems, err := json.Marshal(res.Lines)
	if err != nil {
		return fmt.Errorf("encode reservation lines: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO reservation (id, customer_ref, reservation_date, event_date, deposit_amount, state, line_items)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		res.ID, res.CustomerRef, res.ReservationDate, res.EventDate,
		res.DepositAmount, res.State, lineItems,
	)
	return err
}

func (t *txRepo) SetState(ctx context.Context, id string, from, to State) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE reservation SET state = $3 WHERE id = $1 AND state = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotActive
	}
	return nil
}

func (t *txRepo) ApplyStockDelta(ctx context.Context, productCode string, qty float64) error {
	return stock.ApplyDeltaTx(ctx, t.tx, productCode, qty)
}
