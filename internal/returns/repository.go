package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/platform/db"
	"github.com/mostrador/mostrador/internal/sequence"
	"github.com/mostrador/mostrador/internal/stock"
)

// Repository is the postgres-backed return store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetReturn loads a return header with its lines.
func (r *Repository) GetReturn(ctx context.Context, id string) (*ReturnDocument, error) {
	var doc ReturnDocument
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, original_document_id, date, subtotal, total, series_code, document_number
		FROM return_document WHERE id = $1`, id).Scan(
		&doc.ID, &doc.Kind, &doc.OriginalDocumentID, &doc.Date,
		&doc.Subtotal, &doc.Total, &doc.SeriesCode, &doc.DocumentNumber,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReturnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get return: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT return_id, seq, product_code, qty, unit_price, description
		FROM return_line WHERE return_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get return lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l ReturnLine
		if err := rows.Scan(&l.ReturnID, &l.Seq, &l.ProductCode, &l.Quantity, &l.UnitPrice, &l.Description); err != nil {
			return nil, fmt.Errorf("scan return line: %w", err)
		}
		doc.Lines = append(doc.Lines, l)
	}
	return &doc, rows.Err()
}

// ListReturns lists returns filed against one original document.
func (r *Repository) ListReturns(ctx context.Context, kind Kind, originalDocID string) ([]ReturnDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, original_document_id, date, subtotal, total, series_code, document_number
		FROM return_document WHERE kind = $1 AND original_document_id = $2
		ORDER BY date`, kind, originalDocID)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()

	var out []ReturnDocument
	for rows.Next() {
		var doc ReturnDocument
		if err := rows.Scan(
			&doc.ID, &doc.Kind, &doc.OriginalDocumentID, &doc.Date,
			&doc.Subtotal, &doc.Total, &doc.SeriesCode, &doc.DocumentNumber,
		); err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
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

// GetOriginalLines aggregates the original document's lines per product.
// A product listed at several unit prices collapses to its
// quantity-weighted price so the return values the goods the way the
// original did, regardless of row order.
func (t *txRepo) GetOriginalLines(ctx context.Context, kind Kind, originalDocID string) (map[string]OriginalLine, error) {
	query := `
		SELECT product_code, SUM(qty * unit_price) / SUM(qty), SUM(qty)
		FROM sale_line WHERE sale_id = $1
		GROUP BY product_code`
	if kind == KindPurchase {
		query = `
			SELECT product_code, SUM(qty * unit_price) / SUM(qty), SUM(qty)
			FROM purchase_line WHERE purchase_id = $1
			GROUP BY product_code`
	}
	rows, err := t.tx.Query(ctx, query, originalDocID)
	if err != nil {
		return nil, fmt.Errorf("get original lines: %w", err)
	}
	defer rows.Close()

	out := map[string]OriginalLine{}
	for rows.Next() {
		var code string
		var price, qty float64
		if err := rows.Scan(&code, &price, &qty); err != nil {
			return nil, err
		}
		out[code] = OriginalLine{UnitPrice: money.Round2(price), Quantity: qty}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrOriginalNotFound
	}
	return out, nil
}

func (t *txRepo) AllocateDocumentNumber(ctx context.Context, seriesCode, scope string) (string, error) {
	return sequence.AllocateTx(ctx, t.tx, seriesCode, scope)
}

func (t *txRepo) InsertReturn(ctx context.Context, doc ReturnDocument) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO return_document (id, kind, original_document_id, date, subtotal, total, series_code, document_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		doc.ID, doc.Kind, doc.OriginalDocumentID, doc.Date,
		doc.Subtotal, doc.Total, doc.SeriesCode, doc.DocumentNumber,
	)
	return err
}

func (t *txRepo) InsertReturnLine(ctx context.Context, line ReturnLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO return_line (return_id, seq, product_code, qty, unit_price, description)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		line.ReturnID, line.Seq, line.ProductCode, line.Quantity, line.UnitPrice, line.Description,
	)
	return err
}

func (t *txRepo) DeleteReturnRows(ctx context.Context, returnID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM return_document WHERE id = $1`, returnID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReturnNotFound
	}
	return nil
}

func (t *txRepo) ApplyStockDelta(ctx context.Context, productCode string, qty float64) error {
	return stock.ApplyDeltaTx(ctx, t.tx, productCode, qty)
}

func (t *txRepo) SumReturnedQuantity(ctx context.Context, kind Kind, originalDocID string) (float64, error) {
	var sum float64
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.qty), 0)
		FROM return_line l
		JOIN return_document d ON d.id = l.return_id
		WHERE d.kind = $1 AND d.original_document_id = $2`, kind, originalDocID).Scan(&sum)
	return sum, err
}

func (t *txRepo) SetReversalState(ctx context.Context, kind Kind, originalDocID string, state ReversalState) error {
	query := `UPDATE sale SET reversal_state = $2 WHERE id = $1`
	if kind == KindPurchase {
		query = `UPDATE purchase SET reversal_state = $2 WHERE id = $1`
	}
	tag, err := t.tx.Exec(ctx, query, originalDocID, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOriginalNotFound
	}
	return nil
}
