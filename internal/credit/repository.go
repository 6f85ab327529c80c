package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mostrador/mostrador/internal/platform/db"
	"github.com/mostrador/mostrador/internal/sales"
)

// Repository is the postgres-backed credit ledger store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAccount loads the credit account of a sale.
func (r *Repository) GetAccount(ctx context.Context, saleID string) (*sales.CreditAccount, error) {
	var account sales.CreditAccount
	err := r.pool.QueryRow(ctx, `
		SELECT sale_id, term_days, outstanding_balance
		FROM credit_account WHERE sale_id = $1`, saleID).Scan(
		&account.SaleID, &account.TermDays, &account.OutstandingBalance,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoCreditAccount
	}
	if err != nil {
		return nil, fmt.Errorf("get credit account: %w", err)
	}
	return &account, nil
}

// ListInstallments returns all installment rows of a sale ordered by seq.
func (r *Repository) ListInstallments(ctx context.Context, saleID string) ([]sales.Installment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sale_id, seq, due_date, principal, interest, balance_after, plan_count, linked_payment_id
		FROM installment WHERE sale_id = $1 ORDER BY seq`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var out []sales.Installment
	for rows.Next() {
		var inst sales.Installment
		if err := rows.Scan(
			&inst.SaleID, &inst.Seq, &inst.DueDate, &inst.Principal,
			&inst.Interest, &inst.BalanceAfter, &inst.PlanCount, &inst.LinkedPaymentID,
		); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// ListPayments returns all payments of a sale in chronological order.
func (r *Repository) ListPayments(ctx context.Context, saleID string) ([]sales.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, customer_ref, date, amount
		FROM payment WHERE sale_id = $1 ORDER BY date, id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []sales.Payment
	for rows.Next() {
		var p sales.Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.CustomerRef, &p.Date, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
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

func (t *txRepo) GetOutstandingForUpdate(ctx context.Context, saleID string) (float64, error) {
	var balance float64
	err := t.tx.QueryRow(ctx, `
		SELECT outstanding_balance FROM credit_account
		WHERE sale_id = $1 FOR UPDATE`, saleID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoCreditAccount
	}
	return balance, err
}

func (t *txRepo) InsertPayment(ctx context.Context, payment sales.Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payment (sale_id, customer_ref, date, amount)
		VALUES ($1,$2,$3,$4) RETURNING id`,
		payment.SaleID, payment.CustomerRef, payment.Date, payment.Amount,
	).Scan(&id)
	return id, err
}

func (t *txRepo) SetOutstanding(ctx context.Context, saleID string, balance float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE credit_account SET outstanding_balance = $2 WHERE sale_id = $1`, saleID, balance)
	return err
}
