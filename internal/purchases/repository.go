package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/platform/db"
	"github.com/mostrador/mostrador/internal/sequence"
	"github.com/mostrador/mostrador/internal/stock"
)

// Repository is the postgres-backed purchase store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPurchase loads a purchase header with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id string) (*PurchaseDocument, error) {
	var doc PurchaseDocument
	err := r.pool.QueryRow(ctx, `
		SELECT id, supplier_ref, date, subtotal, total, series_code, document_number, reversal_state
		FROM purchase WHERE id = $1`, id).Scan(
		&doc.ID, &doc.SupplierRef, &doc.Date, &doc.Subtotal, &doc.Total,
		&doc.SeriesCode, &doc.DocumentNumber, &doc.ReversalState,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT purchase_id, seq, product_code, qty, unit_price, description
		FROM purchase_line WHERE purchase_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l PurchaseLine
		if err := rows.Scan(&l.PurchaseID, &l.Seq, &l.ProductCode, &l.Quantity, &l.UnitPrice, &l.Description); err != nil {
			return nil, fmt.Errorf("scan purchase line: %w", err)
		}
		doc.Lines = append(doc.Lines, l)
	}
	return &doc, rows.Err()
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

func (t *txRepo) AllocateDocumentNumber(ctx context.Context, seriesCode, scope string) (string, error) {
	return sequence.AllocateTx(ctx, t.tx, seriesCode, scope)
}

func (t *txRepo) InsertPurchase(ctx context.Context, doc PurchaseDocument) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase (id, supplier_ref, date, subtotal, total, series_code, document_number, reversal_state)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		doc.ID, doc.SupplierRef, doc.Date, doc.Subtotal, doc.Total,
		doc.SeriesCode, doc.DocumentNumber, doc.ReversalState,
	)
	return err
}

func (t *txRepo) InsertPurchaseLine(ctx context.Context, line PurchaseLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_line (purchase_id, seq, product_code, qty, unit_price, description)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		line.PurchaseID, line.Seq, line.ProductCode, line.Quantity, line.UnitPrice, line.Description,
	)
	return err
}

func (t *txRepo) ApplyStockDelta(ctx context.Context, productCode string, qty float64) error {
	return stock.ApplyDeltaTx(ctx, t.tx, productCode, qty)
}
