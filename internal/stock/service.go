package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/shared"
)

// TxRepository exposes transactional stock operations.
type TxRepository interface {
	ApplyDelta(ctx context.Context, productCode string, qty float64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, productCode string) (float64, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Ledger coordinates standalone stock adjustments. Coordinators do not
// go through here; they call ApplyDeltaTx inside their own transactions.
type Ledger struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewLedger builds Ledger.
func NewLedger(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Ledger {
	return &Ledger{repo: repo, audit: audit, idempotency: idem}
}

// Adjust applies a signed delta outside any document flow, e.g. an
// inventory recount.
func (l *Ledger) Adjust(ctx context.Context, input AdjustmentInput) error {
	if input.ProductCode == "" {
		return ErrProductNotFound
	}
	if input.Delta == 0 {
		return ErrZeroDelta
	}
	code := input.Code
	if code == "" {
		code = fmt.Sprintf("ADJ-%d", time.Now().UnixNano())
	}
	key := fmt.Sprintf("adjust:%s:%s", code, input.ProductCode)
	insertedKey := false
	if l.idempotency != nil {
		if err := l.idempotency.CheckAndInsert(ctx, key, "stock"); err != nil {
			return err
		}
		insertedKey = true
	}

	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.ApplyDelta(ctx, input.ProductCode, input.Delta)
	})
	if err != nil {
		if insertedKey {
			_ = l.idempotency.Delete(ctx, key)
		}
		return err
	}
	if l.audit != nil {
		_ = l.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "stock:adjust",
			Entity:   "product",
			EntityID: input.ProductCode,
			Meta: map[string]any{
				"delta": input.Delta,
				"note":  input.Note,
			},
		})
	}
	return nil
}

// GetStock reads the current stock for a product.
func (l *Ledger) GetStock(ctx context.Context, productCode string) (float64, error) {
	return l.repo.GetStock(ctx, productCode)
}
