package sales

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

// Repository is the postgres-backed sale store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSale loads a sale header with its lines.
func (r *Repository) GetSale(ctx context.Context, id string) (*SaleDocument, error) {
	var doc SaleDocument
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_ref, date, subtotal, discount, tax, total,
		       payment_kind, payment_method, series_code, document_number, reversal_state
		FROM sale WHERE id = $1`, id).Scan(
		&doc.ID, &doc.CustomerRef, &doc.Date, &doc.Subtotal, &doc.Discount,
		&doc.Tax, &doc.Total, &doc.PaymentKind, &doc.PaymentMethod,
		&doc.SeriesCode, &doc.DocumentNumber, &doc.ReversalState,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT sale_id, seq, product_code, qty, unit_price, description
		FROM sale_line WHERE sale_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.SaleID, &l.Seq, &l.ProductCode, &l.Quantity, &l.UnitPrice, &l.Description); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		doc.Lines = append(doc.Lines, l)
	}
	return &doc, rows.Err()
}

// ListSales returns sale headers ordered by date descending.
func (r *Repository) ListSales(ctx context.Context, limit, offset int) ([]SaleDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_ref, date, subtotal, discount, tax, total,
		       payment_kind, payment_method, series_code, document_number, reversal_state
		FROM sale ORDER BY date DESC, document_number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var out []SaleDocument
	for rows.Next() {
		var doc SaleDocument
		if err := rows.Scan(
			&doc.ID, &doc.CustomerRef, &doc.Date, &doc.Subtotal, &doc.Discount,
			&doc.Tax, &doc.Total, &doc.PaymentKind, &doc.PaymentMethod,
			&doc.SeriesCode, &doc.DocumentNumber, &doc.ReversalState,
		); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
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

func (t *txRepo) AllocateDocumentNumber(ctx context.Context, seriesCode, scope string) (string, error) {
	return sequence.AllocateTx(ctx, t.tx, seriesCode, scope)
}

func (t *txRepo) ApplyStockDelta(ctx context.Context, productCode string, qty float64) error {
	return stock.ApplyDeltaTx(ctx, t.tx, productCode, qty)
}

func (t *txRepo) InsertSale(ctx context.Context, doc SaleDocument) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sale (id, customer_ref, date, subtotal, discount, tax, total,
		                  payment_kind, payment_method, series_code, document_number, reversal_state)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		doc.ID, doc.CustomerRef, doc.Date, doc.Subtotal, doc.Discount, doc.Tax, doc.Total,
		doc.PaymentKind, doc.PaymentMethod, doc.SeriesCode, doc.DocumentNumber, doc.ReversalState,
	)
	return err
}

func (t *txRepo) InsertSaleLine(ctx context.Context, line SaleLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sale_line (sale_id, seq, product_code, qty, unit_price, description)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		line.SaleID, line.Seq, line.ProductCode, line.Quantity, line.UnitPrice, line.Description,
	)
	return err
}

func (t *txRepo) InsertCreditAccount(ctx context.Context, account CreditAccount) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO credit_account (sale_id, term_days, outstanding_balance)
		VALUES ($1,$2,$3)`,
		account.SaleID, account.TermDays, account.OutstandingBalance,
	)
	return err
}

func (t *txRepo) InsertInstallment(ctx context.Context, inst Installment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO installment (sale_id, seq, due_date, principal, interest, balance_after, plan_count, linked_payment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		inst.SaleID, inst.Seq, inst.DueDate, inst.Principal, inst.Interest,
		inst.BalanceAfter, inst.PlanCount, inst.LinkedPaymentID,
	)
	return err
}

func (t *txRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payment (sale_id, customer_ref, date, amount)
		VALUES ($1,$2,$3,$4) RETURNING id`,
		payment.SaleID, payment.CustomerRef, payment.Date, payment.Amount,
	).Scan(&id)
	return id, err
}

func (t *txRepo) MarkReservationCompleted(ctx context.Context, reservationID string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE reservation SET state = 'completed'
		WHERE id = $1 AND state = 'active'`, reservationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not active", reservationID)
	}
	return nil
}
