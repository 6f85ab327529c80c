package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mostrador/mostrador/internal/catalog"
	"github.com/mostrador/mostrador/internal/sales"
	"github.com/mostrador/mostrador/internal/shared"
)

// TxRepository exposes reservation writes on one transaction.
type TxRepository interface {
	InsertReservation(ctx context.Context, res Reservation) error
	SetState(ctx context.Context, id string, from, to State) error
	ApplyStockDelta(ctx context.Context, productCode string, qty float64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReservation(ctx context.Context, id string) (*Reservation, error)
	ListOverdue(ctx context.Context, before time.Time) ([]string, error)
}

// CatalogPort supplies current product price, tax and stock.
type CatalogPort interface {
	GetProduct(ctx context.Context, code string) (*catalog.Product, error)
}

// SalesPort delegates the conversion sale.
type SalesPort interface {
	CreateSale(ctx context.Context, req sales.CreateSaleRequest) (*sales.SaleResult, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Workflow runs the reservation lifecycle: create, convert to sale,
// cancel, expire.
type Workflow struct {
	repo    RepositoryPort
	catalog CatalogPort
	sales   SalesPort
	audit   AuditPort
	now     func() time.Time
}

// NewWorkflow builds Workflow.
func NewWorkflow(repo RepositoryPort, cat CatalogPort, salesSvc SalesPort, audit AuditPort) *Workflow {
	return &Workflow{repo: repo, catalog: cat, sales: salesSvc, audit: audit, now: time.Now}
}

// Create records a reservation and debits stock for the snapshot
// quantities in one transaction. Prices are snapshotted from the catalog
// for display; conversion re-prices.
func (w *Workflow) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	res := Reservation{
		ID:              uuid.NewString(),
		CustomerRef:     req.CustomerRef,
		ReservationDate: w.now(),
		EventDate:       req.EventDate,
		DepositAmount:   req.DepositAmount,
		State:           StateActive,
	}
	seen := make(map[string]bool, len(req.Lines))
	for _, in := range req.Lines {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, in.ProductCode)
		}
		if seen[in.ProductCode] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, in.ProductCode)
		}
		seen[in.ProductCode] = true
		product, err := w.catalog.GetProduct(ctx, in.ProductCode)
		if err != nil {
			return nil, err
		}
		res.Lines = append(res.Lines, Line{
			ProductCode: in.ProductCode,
			Quantity:    in.Quantity,
			UnitPrice:   product.Price,
			TaxPercent:  product.TaxPercent,
			Description: in.Description,
		})
	}

	err := w.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertReservation(ctx, res); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		for _, line := range res.Lines {
			if err := tx.ApplyStockDelta(ctx, line.ProductCode, -line.Quantity); err != nil {
				return fmt.Errorf("reserve stock %s: %w", line.ProductCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if w.audit != nil {
		_ = w.audit.Record(ctx, shared.AuditLog{
			Action:   "reservations:create",
			Entity:   "reservation",
			EntityID: res.ID,
			Meta:     map[string]any{"customer": res.CustomerRef, "deposit": res.DepositAmount},
		})
	}
	return &res, nil
}

// Convert turns an active reservation into a sale. Quantities may be
// edited, prices always come from the current catalog, and only the
// difference against the already-reserved quantities moves stock. The
// deposit becomes the down payment of a credit conversion. The sale and
// the reservation completion commit together; on any failure the
// reservation stays active.
func (w *Workflow) Convert(ctx context.Context, id string, req ConvertRequest) (*sales.SaleResult, error) {
	res, err := w.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.State != StateActive {
		return nil, ErrNotActive
	}

	snapshot := make(map[string]float64, len(res.Lines))
	for _, line := range res.Lines {
		snapshot[line.ProductCode] = line.Quantity
	}
	for code := range req.Edits {
		if _, ok := snapshot[code]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEdit, code)
		}
	}

	var saleLines []sales.SaleLineInput
	reinstate := map[string]float64{}
	for _, line := range res.Lines {
		finalQty := line.Quantity
		if edited, ok := req.Edits[line.ProductCode]; ok {
			if edited < 0 {
				return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductCode)
			}
			finalQty = edited
		}
		if finalQty == 0 {
			reinstate[line.ProductCode] = line.Quantity
			continue
		}

		product, err := w.catalog.GetProduct(ctx, line.ProductCode)
		if err != nil {
			return nil, err
		}
		if increase := finalQty - line.Quantity; increase > 0 && product.Stock < increase {
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, line.ProductCode)
		}

		// The snapshot quantity is already off the shelf; only the
		// difference moves now.
		delta := line.Quantity - finalQty
		saleLines = append(saleLines, sales.SaleLineInput{
			ProductCode: line.ProductCode,
			Quantity:    finalQty,
			UnitPrice:   product.Price,
			TaxPercent:  product.TaxPercent,
			Description: line.Description,
			StockDelta:  &delta,
		})
	}
	if len(saleLines) == 0 {
		return nil, ErrEmptyLines
	}

	saleReq := sales.CreateSaleRequest{
		CustomerRef:   res.CustomerRef,
		Scope:         req.Scope,
		SeriesCode:    req.SeriesCode,
		PaymentKind:   sales.PaymentKind(req.PaymentKind),
		PaymentMethod: req.PaymentMethod,
		Lines:         saleLines,
		ReservationID: &res.ID,
	}
	if len(reinstate) > 0 {
		// Removed lines go back on the shelf inside the sale
		// transaction; the reinstatement commits or rolls back with
		// the document.
		saleReq.ExtraStockDeltas = reinstate
	}
	if saleReq.PaymentKind == sales.PaymentKindCredit {
		terms := CreditTerms{}
		if req.Credit != nil {
			terms = *req.Credit
		}
		saleReq.Credit = &sales.CreditConfig{
			DownPayment:      res.DepositAmount,
			InterestPercent:  terms.InterestPercent,
			InstallmentCount: terms.InstallmentCount,
			TermDays:         terms.TermDays,
		}
	}

	result, err := w.sales.CreateSale(ctx, saleReq)
	if err != nil {
		return nil, err
	}

	if w.audit != nil {
		_ = w.audit.Record(ctx, shared.AuditLog{
			Action:   "reservations:convert",
			Entity:   "reservation",
			EntityID: res.ID,
			Meta:     map[string]any{"sale_id": result.SaleID, "total": result.Total},
		})
	}
	return result, nil
}

// Cancel moves an active reservation to cancelled and reinstates the
// snapshot stock in one transaction.
func (w *Workflow) Cancel(ctx context.Context, id string) error {
	res, err := w.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if res.State != StateActive {
		return ErrNotActive
	}

	err = w.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetState(ctx, id, StateActive, StateCancelled); err != nil {
			return err
		}
		for _, line := range res.Lines {
			if err := tx.ApplyStockDelta(ctx, line.ProductCode, line.Quantity); err != nil {
				return fmt.Errorf("reinstate stock %s: %w", line.ProductCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if w.audit != nil {
		_ = w.audit.Record(ctx, shared.AuditLog{
			Action:   "reservations:cancel",
			Entity:   "reservation",
			EntityID: id,
		})
	}
	return nil
}

// ExpireOverdue cancels active reservations whose event date passed more
// than grace ago. Individual failures do not stop the sweep.
func (w *Workflow) ExpireOverdue(ctx context.Context, grace time.Duration) (int, error) {
	ids, err := w.repo.ListOverdue(ctx, w.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if err := w.Cancel(ctx, id); err != nil {
			continue
		}
		expired++
	}
	return expired, nil
}

// Get loads a reservation.
func (w *Workflow) Get(ctx context.Context, id string) (*Reservation, error) {
	return w.repo.GetReservation(ctx, id)
}
