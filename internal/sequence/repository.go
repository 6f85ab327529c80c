package sequence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for document series.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSeries reads a series row without locking it.
func (r *Repository) GetSeries(ctx context.Context, code, scope string) (Series, error) {
	var s Series
	err := r.pool.QueryRow(ctx, `SELECT series_code, scope, prefix_a, prefix_b, counter FROM document_series WHERE series_code = $1 AND scope = $2`, code, scope).
		Scan(&s.Code, &s.Scope, &s.PrefixA, &s.PrefixB, &s.Counter)
	if errors.Is(err, pgx.ErrNoRows) {
		return Series{}, ErrSeriesNotFound
	}
	if err != nil {
		return Series{}, err
	}
	return s, nil
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in one transaction using the shared options.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, db.DefaultTxOptions)
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetSeriesForUpdate locks the series row against concurrent allocators.
// A second allocation on the same series blocks here until the first
// transaction commits or rolls back.
func (t *txRepo) GetSeriesForUpdate(ctx context.Context, code, scope string) (Series, error) {
	return getSeriesForUpdate(ctx, t.tx, code, scope)
}

func (t *txRepo) InsertSeries(ctx context.Context, s Series) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO document_series (series_code, scope, prefix_a, prefix_b, counter) VALUES ($1, $2, $3, $4, $5)`,
		s.Code, s.Scope, s.PrefixA, s.PrefixB, s.Counter)
	return err
}

func (t *txRepo) SetCounter(ctx context.Context, code, scope string, value int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE document_series SET counter = $3 WHERE series_code = $1 AND scope = $2`, code, scope, value)
	return err
}

func (t *txRepo) SetPrefixes(ctx context.Context, code, scope, prefixA, prefixB string) error {
	_, err := t.tx.Exec(ctx, `UPDATE document_series SET prefix_a = $3, prefix_b = $4 WHERE series_code = $1 AND scope = $2`, code, scope, prefixA, prefixB)
	return err
}

func getSeriesForUpdate(ctx context.Context, tx pgx.Tx, code, scope string) (Series, error) {
	var s Series
	err := tx.QueryRow(ctx, `SELECT series_code, scope, prefix_a, prefix_b, counter FROM document_series WHERE series_code = $1 AND scope = $2 FOR UPDATE`, code, scope).
		Scan(&s.Code, &s.Scope, &s.PrefixA, &s.PrefixB, &s.Counter)
	if errors.Is(err, pgx.ErrNoRows) {
		return Series{}, ErrSeriesNotFound
	}
	if err != nil {
		return Series{}, err
	}
	return s, nil
}

// AllocateTx reserves the next number for a series inside an existing
// transaction. Coordinators call this so the allocation commits or rolls
// back together with the document it numbers.
func AllocateTx(ctx context.Context, tx pgx.Tx, code, scope string) (string, error) {
	defaults, err := DefaultSeries(code, scope)
	if err != nil {
		return "", err
	}
	// Lazy creation keeps the FOR UPDATE below deterministic for the
	// first allocation of a series.
	if _, err := tx.Exec(ctx, `INSERT INTO document_series (series_code, scope, prefix_a, prefix_b, counter) VALUES ($1, $2, $3, $4, 0) ON CONFLICT (series_code, scope) DO NOTHING`,
		defaults.Code, defaults.Scope, defaults.PrefixA, defaults.PrefixB); err != nil {
		return "", err
	}
	series, err := getSeriesForUpdate(ctx, tx, code, scope)
	if err != nil {
		return "", err
	}
	next := series.Counter + 1
	if _, err := tx.Exec(ctx, `UPDATE document_series SET counter = $3 WHERE series_code = $1 AND scope = $2`, code, scope, next); err != nil {
		return "", err
	}
	return FormatNumber(series.PrefixA, series.PrefixB, next), nil
}
