package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/shared"
)

// TxRepository exposes every write the reversal coordinator performs.
type TxRepository interface {
	GetOriginalLines(ctx context.Context, kind Kind, originalDocID string) (map[string]OriginalLine, error)
	AllocateDocumentNumber(ctx context.Context, seriesCode, scope string) (string, error)
	InsertReturn(ctx context.Context, doc ReturnDocument) error
	InsertReturnLine(ctx context.Context, line ReturnLine) error
	DeleteReturnRows(ctx context.Context, returnID string) error
	ApplyStockDelta(ctx context.Context, productCode string, qty float64) error
	SumReturnedQuantity(ctx context.Context, kind Kind, originalDocID string) (float64, error)
	SetReversalState(ctx context.Context, kind Kind, originalDocID string, state ReversalState) error
}

// RepositoryPort abstracts repository usage for the coordinator.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReturn(ctx context.Context, id string) (*ReturnDocument, error)
	ListReturns(ctx context.Context, kind Kind, originalDocID string) ([]ReturnDocument, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Coordinator creates and deletes returns against sale and purchase
// documents, keeping stock and the original document's reversal state in
// step with the return rows.
type Coordinator struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewCoordinator builds Coordinator.
func NewCoordinator(repo RepositoryPort, audit AuditPort) *Coordinator {
	return &Coordinator{repo: repo, audit: audit, now: time.Now}
}

// CreateReturn writes a return header and lines, moves stock, and
// recomputes the original document's reversal state, all in one
// transaction. Prices mirror the original document; the caller only names
// products and quantities.
func (c *Coordinator) CreateReturn(ctx context.Context, req CreateReturnRequest) (*ReturnResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductCode)
		}
	}

	returnID := uuid.NewString()
	result := &ReturnResult{ReturnID: returnID}

	err := c.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetOriginalLines(ctx, req.Kind, req.OriginalDocumentID)
		if err != nil {
			return err
		}

		var subtotal float64
		lines := make([]ReturnLine, 0, len(req.Lines))
		for i, in := range req.Lines {
			orig, ok := original[in.ProductCode]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownProduct, in.ProductCode)
			}
			lineTotal := money.Round2(in.Quantity * orig.UnitPrice)
			subtotal = money.Round2(subtotal + lineTotal)
			lines = append(lines, ReturnLine{
				ReturnID:    returnID,
				Seq:         i + 1,
				ProductCode: in.ProductCode,
				Quantity:    in.Quantity,
				UnitPrice:   orig.UnitPrice,
				Description: in.Description,
			})
		}

		number, err := tx.AllocateDocumentNumber(ctx, seriesFor(req.Kind), req.Scope)
		if err != nil {
			return fmt.Errorf("allocate document number: %w", err)
		}

		doc := ReturnDocument{
			ID:                 returnID,
			Kind:               req.Kind,
			OriginalDocumentID: req.OriginalDocumentID,
			Date:               c.now(),
			Subtotal:           subtotal,
			Total:              subtotal,
			SeriesCode:         seriesFor(req.Kind),
			DocumentNumber:     number,
		}
		if err := tx.InsertReturn(ctx, doc); err != nil {
			return fmt.Errorf("insert return: %w", err)
		}
		for _, line := range lines {
			if err := tx.InsertReturnLine(ctx, line); err != nil {
				return fmt.Errorf("insert return line %d: %w", line.Seq, err)
			}
			if err := tx.ApplyStockDelta(ctx, line.ProductCode, stockSign(req.Kind)*line.Quantity); err != nil {
				return fmt.Errorf("stock delta %s: %w", line.ProductCode, err)
			}
		}

		state, err := c.recomputeState(ctx, tx, req.Kind, req.OriginalDocumentID, original)
		if err != nil {
			return err
		}
		result.DocumentNumber = number
		result.Total = subtotal
		result.ReversalState = state
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.audit != nil {
		_ = c.audit.Record(ctx, shared.AuditLog{
			Action:   "returns:create",
			Entity:   "return",
			EntityID: returnID,
			Meta: map[string]any{
				"kind":     string(req.Kind),
				"original": req.OriginalDocumentID,
				"total":    result.Total,
			},
		})
	}
	return result, nil
}

// DeleteReturn removes a return, inverts its stock effect and recomputes
// the original document's reversal state from the remaining returns.
func (c *Coordinator) DeleteReturn(ctx context.Context, id string) error {
	doc, err := c.repo.GetReturn(ctx, id)
	if err != nil {
		return err
	}

	err = c.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetOriginalLines(ctx, doc.Kind, doc.OriginalDocumentID)
		if err != nil {
			return err
		}
		for _, line := range doc.Lines {
			if err := tx.ApplyStockDelta(ctx, line.ProductCode, -stockSign(doc.Kind)*line.Quantity); err != nil {
				return fmt.Errorf("stock delta %s: %w", line.ProductCode, err)
			}
		}
		if err := tx.DeleteReturnRows(ctx, id); err != nil {
			return fmt.Errorf("delete return: %w", err)
		}
		_, err = c.recomputeState(ctx, tx, doc.Kind, doc.OriginalDocumentID, original)
		return err
	})
	if err != nil {
		return err
	}

	if c.audit != nil {
		_ = c.audit.Record(ctx, shared.AuditLog{
			Action:   "returns:delete",
			Entity:   "return",
			EntityID: id,
			Meta:     map[string]any{"original": doc.OriginalDocumentID},
		})
	}
	return nil
}

// recomputeState derives none/partial/full from the quantities returned
// across all remaining returns versus the original quantities, and writes
// it back on the original document.
func (c *Coordinator) recomputeState(ctx context.Context, tx TxRepository, kind Kind, originalDocID string, original map[string]OriginalLine) (ReversalState, error) {
	returned, err := tx.SumReturnedQuantity(ctx, kind, originalDocID)
	if err != nil {
		return "", fmt.Errorf("sum returned quantity: %w", err)
	}
	var originalQty float64
	for _, line := range original {
		originalQty += line.Quantity
	}

	state := ReversalNone
	switch {
	case returned <= 0:
	case returned >= originalQty:
		state = ReversalFull
	default:
		state = ReversalPartial
	}
	if err := tx.SetReversalState(ctx, kind, originalDocID, state); err != nil {
		return "", fmt.Errorf("set reversal state: %w", err)
	}
	return state, nil
}

// GetReturn loads a return with its lines.
func (c *Coordinator) GetReturn(ctx context.Context, id string) (*ReturnDocument, error) {
	return c.repo.GetReturn(ctx, id)
}

// ListReturns lists the returns filed against one original document.
func (c *Coordinator) ListReturns(ctx context.Context, kind Kind, originalDocID string) ([]ReturnDocument, error) {
	return c.repo.ListReturns(ctx, kind, originalDocID)
}
