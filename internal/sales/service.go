package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/shared"
)

// TxRepository exposes every write the sale coordinator performs.
// All of it happens inside one transaction; a failure at any step rolls
// back the document, its lines, the stock deltas, the allocated number
// and the credit rows together.
type TxRepository interface {
	AllocateDocumentNumber(ctx context.Context, seriesCode, scope string) (string, error)
	InsertSale(ctx context.Context, doc SaleDocument) error
	InsertSaleLine(ctx context.Context, line SaleLine) error
	ApplyStockDelta(ctx context.Context, productCode string, qty float64) error
	InsertCreditAccount(ctx context.Context, account CreditAccount) error
	InsertInstallment(ctx context.Context, inst Installment) error
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	MarkReservationCompleted(ctx context.Context, reservationID string) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id string) (*SaleDocument, error)
	ListSales(ctx context.Context, limit, offset int) ([]SaleDocument, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates sale creation.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateSale validates, prices and persists a sale as one unit of work:
// header, lines, stock deltas, document number and, for credit sales,
// the credit account, installment schedule and down payment. Nothing is
// visible to other transactions until commit; any error surfaces after
// a full rollback.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductCode)
		}
	}
	if req.PaymentKind == PaymentKindCredit && req.Credit == nil {
		return nil, ErrCreditConfigMissing
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	var subtotal, tax float64
	for _, line := range req.Lines {
		lineBase := money.Round2(line.Quantity * line.UnitPrice)
		subtotal += lineBase
		tax += money.Round2(lineBase * line.TaxPercent / 100)
	}
	subtotal = money.Round2(subtotal)
	tax = money.Round2(tax)
	grossTotal := money.Round2(subtotal + tax)
	discount := money.ComputeDiscount(grossTotal, req.DiscountKind, req.DiscountValue)
	total := money.Round2(grossTotal - discount)

	saleID := uuid.NewString()
	result := &SaleResult{
		SaleID:   saleID,
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    total,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number := req.DocumentNumber
		if number == "" {
			var err error
			number, err = tx.AllocateDocumentNumber(ctx, req.SeriesCode, req.Scope)
			if err != nil {
				return fmt.Errorf("allocate document number: %w", err)
			}
		}
		result.DocumentNumber = number

		doc := SaleDocument{
			ID:             saleID,
			CustomerRef:    req.CustomerRef,
			Date:           date,
			Subtotal:       subtotal,
			Discount:       discount,
			Tax:            tax,
			Total:          total,
			PaymentKind:    req.PaymentKind,
			PaymentMethod:  req.PaymentMethod,
			SeriesCode:     req.SeriesCode,
			DocumentNumber: number,
			ReversalState:  ReversalNone,
		}
		if err := tx.InsertSale(ctx, doc); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for i, line := range req.Lines {
			saleLine := SaleLine{
				SaleID:      saleID,
				Seq:         i + 1,
				ProductCode: line.ProductCode,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				Description: line.Description,
			}
			if err := tx.InsertSaleLine(ctx, saleLine); err != nil {
				return fmt.Errorf("insert sale line %d: %w", i+1, err)
			}
		}

		for _, line := range req.Lines {
			delta := -line.Quantity
			if line.StockDelta != nil {
				delta = *line.StockDelta
			}
			if delta == 0 {
				continue
			}
			if err := tx.ApplyStockDelta(ctx, line.ProductCode, delta); err != nil {
				return fmt.Errorf("stock delta %s: %w", line.ProductCode, err)
			}
		}
		for code, delta := range req.ExtraStockDeltas {
			if delta == 0 {
				continue
			}
			if err := tx.ApplyStockDelta(ctx, code, delta); err != nil {
				return fmt.Errorf("stock delta %s: %w", code, err)
			}
		}

		if req.PaymentKind == PaymentKindCredit {
			outstanding, err := s.writeCreditSchedule(ctx, tx, saleID, req, date, total)
			if err != nil {
				return err
			}
			result.OutstandingBalance = outstanding
		}

		if req.ReservationID != nil {
			if err := tx.MarkReservationCompleted(ctx, *req.ReservationID); err != nil {
				return fmt.Errorf("complete reservation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "sales:create",
			Entity:   "sale",
			EntityID: saleID,
			Meta: map[string]any{
				"document_number": result.DocumentNumber,
				"total":           total,
				"payment_kind":    string(req.PaymentKind),
			},
		})
	}
	return result, nil
}

// writeCreditSchedule persists the credit account, the down payment and
// the installment rows for a credit sale, all on the caller's tx.
func (s *Service) writeCreditSchedule(ctx context.Context, tx TxRepository, saleID string, req CreateSaleRequest, date time.Time, total float64) (float64, error) {
	cfg := *req.Credit

	downPayment := cfg.DownPayment
	if downPayment < 0 {
		downPayment = 0
	}
	if downPayment > total {
		downPayment = total
	}
	downPayment = money.Round2(downPayment)
	netBalance := money.Round2(total - downPayment)

	plan := money.Schedule(netBalance, cfg.InterestPercent, cfg.InstallmentCount)
	n := len(plan.Principals)

	termDays := cfg.TermDays
	if termDays <= 0 {
		termDays = 30 * n
	}

	account := CreditAccount{
		SaleID:             saleID,
		TermDays:           termDays,
		OutstandingBalance: plan.TotalFinanced,
	}
	if err := tx.InsertCreditAccount(ctx, account); err != nil {
		return 0, fmt.Errorf("insert credit account: %w", err)
	}

	var linkedPaymentID *int64
	if downPayment > 0 {
		paymentID, err := tx.InsertPayment(ctx, Payment{
			SaleID:      saleID,
			CustomerRef: req.CustomerRef,
			Date:        date,
			Amount:      downPayment,
		})
		if err != nil {
			return 0, fmt.Errorf("insert down payment: %w", err)
		}
		linkedPaymentID = &paymentID
	}

	summary := Installment{
		SaleID:          saleID,
		Seq:             1,
		DueDate:         date,
		Principal:       plan.TotalFinanced,
		Interest:        plan.TotalInterest,
		BalanceAfter:    plan.AverageInstallment,
		PlanCount:       &n,
		LinkedPaymentID: linkedPaymentID,
	}
	if err := tx.InsertInstallment(ctx, summary); err != nil {
		return 0, fmt.Errorf("insert installment summary: %w", err)
	}

	remaining := plan.TotalFinanced
	for i := 0; i < n; i++ {
		remaining = money.Round2(remaining - plan.Principals[i])
		due := date.AddDate(0, 0, termDays*(i+1)/n)
		detail := Installment{
			SaleID:       saleID,
			Seq:          i + 2,
			DueDate:      due,
			Principal:    plan.Principals[i],
			Interest:     plan.Interests[i],
			BalanceAfter: remaining,
		}
		if err := tx.InsertInstallment(ctx, detail); err != nil {
			return 0, fmt.Errorf("insert installment %d: %w", i+2, err)
		}
	}
	return plan.TotalFinanced, nil
}

// GetSale loads a sale with its lines.
func (s *Service) GetSale(ctx context.Context, id string) (*SaleDocument, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns a page of sale headers, newest first.
func (s *Service) ListSales(ctx context.Context, limit, offset int) ([]SaleDocument, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListSales(ctx, limit, offset)
}
