package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/sales"
	"github.com/mostrador/mostrador/internal/shared"
)

// TxRepository exposes payment-ledger writes on one transaction.
type TxRepository interface {
	GetOutstandingForUpdate(ctx context.Context, saleID string) (float64, error)
	InsertPayment(ctx context.Context, payment sales.Payment) (int64, error)
	SetOutstanding(ctx context.Context, saleID string, balance float64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, saleID string) (*sales.CreditAccount, error)
	ListInstallments(ctx context.Context, saleID string) ([]sales.Installment, error)
	ListPayments(ctx context.Context, saleID string) ([]sales.Payment, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs post-sale operations on the installment ledger.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// RegisterPayment appends a payment and reduces the outstanding balance
// in one transaction. The balance never goes below zero; an overpayment
// is rejected before any write.
func (s *Service) RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		outstanding, err := tx.GetOutstandingForUpdate(ctx, req.SaleID)
		if err != nil {
			return err
		}
		if req.Amount > outstanding {
			return fmt.Errorf("%w: %.2f against %.2f", ErrOverpayment, req.Amount, outstanding)
		}

		paymentID, err := tx.InsertPayment(ctx, sales.Payment{
			SaleID:      req.SaleID,
			CustomerRef: req.CustomerRef,
			Date:        date,
			Amount:      req.Amount,
		})
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		balance := money.Round2(outstanding - req.Amount)
		if err := tx.SetOutstanding(ctx, req.SaleID, balance); err != nil {
			return fmt.Errorf("set outstanding balance: %w", err)
		}
		result = PaymentResult{PaymentID: paymentID, OutstandingBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "credit:payment",
			Entity:   "sale",
			EntityID: req.SaleID,
			Meta:     map[string]any{"amount": req.Amount, "balance": result.OutstandingBalance},
		})
	}
	return &result, nil
}

// GetSchedule loads the full ledger of a credit sale: summary row, detail
// rows, payments and the linked down payment.
func (s *Service) GetSchedule(ctx context.Context, saleID string) (*Schedule, error) {
	account, err := s.repo.GetAccount(ctx, saleID)
	if err != nil {
		return nil, err
	}
	installments, err := s.repo.ListInstallments(ctx, saleID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, saleID)
	if err != nil {
		return nil, err
	}

	schedule := &Schedule{
		SaleID:             saleID,
		TermDays:           account.TermDays,
		OutstandingBalance: account.OutstandingBalance,
		Payments:           payments,
	}
	for i := range installments {
		if installments[i].Seq == 1 {
			schedule.Summary = &installments[i]
			continue
		}
		schedule.Details = append(schedule.Details, installments[i])
	}
	if schedule.Summary != nil && schedule.Summary.LinkedPaymentID != nil {
		for i := range payments {
			if payments[i].ID == *schedule.Summary.LinkedPaymentID {
				schedule.DownPayment = &payments[i]
				break
			}
		}
	}
	return schedule, nil
}
