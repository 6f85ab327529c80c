package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/platform/db"
)

// ApplyDeltaTx applies a signed quantity delta to a product inside an
// existing transaction. The guarded UPDATE refuses deductions that would
// leave negative stock.
func ApplyDeltaTx(ctx context.Context, tx pgx.Tx, productCode string, qty float64) error {
	tag, err := tx.Exec(ctx, `UPDATE product SET stock = stock + $2 WHERE code = $1 AND stock + $2 >= 0`, productCode, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM product WHERE code = $1)`, productCode).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

// Repository provides PostgreSQL backed persistence for stock levels.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetStock reads the current stock for a product.
func (r *Repository) GetStock(ctx context.Context, productCode string) (float64, error) {
	var stock float64
	err := r.pool.QueryRow(ctx, `SELECT stock FROM product WHERE code = $1`, productCode).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
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

func (t *txRepo) ApplyDelta(ctx context.Context, productCode string, qty float64) error {
	return ApplyDeltaTx(ctx, t.tx, productCode, qty)
}
