// Package catalog is the product master read side: current price, tax
// rate and stock. Coordinators re-price documents from here rather than
// trusting any stored snapshot.
package catalog

import (
	"fmt"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Product is a catalog entry.
type Product struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	TaxPercent float64 `json:"tax_percent"`
	Stock      float64 `json:"stock"`
}

// Pricing is the cacheable slice of a product: price and tax only.
// Stock is deliberately excluded; it is never served from cache.
type Pricing struct {
	Price      float64 `json:"price"`
	TaxPercent float64 `json:"tax_percent"`
}

// ErrProductNotFound indicates an unknown product code.
var ErrProductNotFound = fmt.Errorf("%w: product", httpx.ErrNotFound)

// UpsertProductRequest creates or replaces a catalog entry.
type UpsertProductRequest struct {
	Code       string  `json:"code" validate:"required,max=50"`
	Name       string  `json:"name" validate:"required,max=200"`
	Price      float64 `json:"price" validate:"gte=0"`
	TaxPercent float64 `json:"tax_percent" validate:"gte=0,lte=100"`
	Stock      float64 `json:"stock" validate:"gte=0"`
}
