// Package stock is the mutation primitive for product quantities. Every
// coordinator applies its signed deltas through this package, inside the
// same transaction as its document writes.
package stock

import (
	"fmt"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

var (
	// ErrInsufficientStock indicates a deduction that would push stock
	// below zero. Validation, never a silent clamp.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", httpx.ErrValidation)
	// ErrProductNotFound indicates an unknown product code.
	ErrProductNotFound = fmt.Errorf("%w: product", httpx.ErrNotFound)
	// ErrZeroDelta indicates a no-op adjustment request.
	ErrZeroDelta = fmt.Errorf("%w: delta must be non-zero", httpx.ErrValidation)
)

// AdjustmentInput describes a standalone stock adjustment.
type AdjustmentInput struct {
	Code        string  `json:"code"`
	ProductCode string  `json:"product_code" validate:"required"`
	Delta       float64 `json:"delta" validate:"required"`
	Note        string  `json:"note"`
	ActorID     int64   `json:"-"`
}
