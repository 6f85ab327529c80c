package purchases

import (
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// PurchaseDocument is a committed inbound goods receipt.
type PurchaseDocument struct {
	ID             string         `json:"id"`
	SupplierRef    string         `json:"supplier_ref"`
	Date           time.Time      `json:"date"`
	Subtotal       float64        `json:"subtotal"`
	Total          float64        `json:"total"`
	SeriesCode     string         `json:"series_code"`
	DocumentNumber string         `json:"document_number"`
	ReversalState  string         `json:"reversal_state"`
	Lines          []PurchaseLine `json:"lines,omitempty"`
}

// PurchaseLine is one received position.
type PurchaseLine struct {
	PurchaseID  string  `json:"-"`
	Seq         int     `json:"seq"`
	ProductCode string  `json:"product_code"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Description string  `json:"description"`
}

// LineInput is one requested purchase position.
type LineInput struct {
	ProductCode string  `json:"product_code" validate:"required,max=50"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Description string  `json:"description,omitempty"`
}

// CreatePurchaseRequest carries a new purchase.
type CreatePurchaseRequest struct {
	SupplierRef string      `json:"supplier_ref" validate:"required,max=100"`
	Date        time.Time   `json:"date"`
	Scope       string      `json:"scope" validate:"required,max=50"`
	Lines       []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// PurchaseResult is the success payload of CreatePurchase.
type PurchaseResult struct {
	PurchaseID     string  `json:"purchase_id"`
	DocumentNumber string  `json:"document_number"`
	Total          float64 `json:"total"`
}

var (
	// ErrEmptyLines indicates a purchase without positions.
	ErrEmptyLines = fmt.Errorf("%w: purchase requires at least one line", httpx.ErrValidation)
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: purchase quantity must be positive", httpx.ErrValidation)
	// ErrPurchaseNotFound indicates an unknown purchase id.
	ErrPurchaseNotFound = fmt.Errorf("%w: purchase", httpx.ErrNotFound)
)
