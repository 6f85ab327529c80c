package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/sequence"
	"github.com/mostrador/mostrador/internal/shared"
)

// TxRepository exposes purchase writes on one transaction.
type TxRepository interface {
	AllocateDocumentNumber(ctx context.Context, seriesCode, scope string) (string, error)
	InsertPurchase(ctx context.Context, doc PurchaseDocument) error
	InsertPurchaseLine(ctx context.Context, line PurchaseLine) error
	ApplyStockDelta(ctx context.Context, productCode string, qty float64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id string) (*PurchaseDocument, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records inbound purchases. Header, lines, document number and
// the stock increments commit together.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreatePurchase writes the purchase document and increments stock per
// line in one transaction.
func (s *Service) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*PurchaseResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductCode)
		}
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	var subtotal float64
	for _, line := range req.Lines {
		subtotal = money.Round2(subtotal + money.Round2(line.Quantity*line.UnitPrice))
	}

	purchaseID := uuid.NewString()
	result := &PurchaseResult{PurchaseID: purchaseID, Total: subtotal}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.AllocateDocumentNumber(ctx, sequence.SeriesPurchase, req.Scope)
		if err != nil {
			return fmt.Errorf("allocate document number: %w", err)
		}
		result.DocumentNumber = number

		doc := PurchaseDocument{
			ID:             purchaseID,
			SupplierRef:    req.SupplierRef,
			Date:           date,
			Subtotal:       subtotal,
			Total:          subtotal,
			SeriesCode:     sequence.SeriesPurchase,
			DocumentNumber: number,
			ReversalState:  "none",
		}
		if err := tx.InsertPurchase(ctx, doc); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		for i, line := range req.Lines {
			if err := tx.InsertPurchaseLine(ctx, PurchaseLine{
				PurchaseID:  purchaseID,
				Seq:         i + 1,
				ProductCode: line.ProductCode,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				Description: line.Description,
			}); err != nil {
				return fmt.Errorf("insert purchase line %d: %w", i+1, err)
			}
			if err := tx.ApplyStockDelta(ctx, line.ProductCode, line.Quantity); err != nil {
				return fmt.Errorf("stock delta %s: %w", line.ProductCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "purchases:create",
			Entity:   "purchase",
			EntityID: purchaseID,
			Meta:     map[string]any{"document_number": result.DocumentNumber, "total": subtotal},
		})
	}
	return result, nil
}

// GetPurchase loads a purchase with its lines.
func (s *Service) GetPurchase(ctx context.Context, id string) (*PurchaseDocument, error) {
	return s.repo.GetPurchase(ctx, id)
}
