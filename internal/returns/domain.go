package returns

import (
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/platform/httpx"
	"github.com/mostrador/mostrador/internal/sequence"
)

// Kind selects which document family a return reverses. Both variants are
// structurally identical; only the stock sign and number series differ.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// ReversalState is the derived return status of an original document.
type ReversalState string

const (
	ReversalNone    ReversalState = "none"
	ReversalPartial ReversalState = "partial"
	ReversalFull    ReversalState = "full"
)

// ReturnDocument is a committed return header. Totals mirror the original
// unit prices; returns carry no separate discount or tax.
type ReturnDocument struct {
	ID                 string       `json:"id"`
	Kind               Kind         `json:"kind"`
	OriginalDocumentID string       `json:"original_document_id"`
	Date               time.Time    `json:"date"`
	Subtotal           float64      `json:"subtotal"`
	Total              float64      `json:"total"`
	SeriesCode         string       `json:"series_code"`
	DocumentNumber     string       `json:"document_number"`
	Lines              []ReturnLine `json:"lines,omitempty"`
}

// ReturnLine is one returned position.
type ReturnLine struct {
	ReturnID    string  `json:"-"`
	Seq         int     `json:"seq"`
	ProductCode string  `json:"product_code"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Description string  `json:"description"`
}

// LineInput is one requested return position. The unit price always comes
// from the original document, never from the caller.
type LineInput struct {
	ProductCode string  `json:"product_code" validate:"required,max=50"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Description string  `json:"description,omitempty"`
}

// CreateReturnRequest carries a new return.
type CreateReturnRequest struct {
	Kind               Kind        `json:"kind" validate:"required,oneof=sale purchase"`
	OriginalDocumentID string      `json:"original_document_id" validate:"required,uuid"`
	Scope              string      `json:"scope" validate:"required,max=50"`
	Lines              []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// ReturnResult is the success payload of CreateReturn.
type ReturnResult struct {
	ReturnID       string        `json:"return_id"`
	DocumentNumber string        `json:"document_number"`
	Total          float64       `json:"total"`
	ReversalState  ReversalState `json:"reversal_state"`
}

// OriginalLine is the per-product aggregate of the document being reversed.
type OriginalLine struct {
	UnitPrice float64
	Quantity  float64
}

var (
	// ErrEmptyLines indicates a return without positions.
	ErrEmptyLines = fmt.Errorf("%w: return requires at least one line", httpx.ErrValidation)
	// ErrInvalidQuantity indicates a non-positive return quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: return quantity must be positive", httpx.ErrValidation)
	// ErrUnknownProduct indicates a returned product absent from the original.
	ErrUnknownProduct = fmt.Errorf("%w: product not on the original document", httpx.ErrValidation)
	// ErrOriginalNotFound indicates an unknown original document id.
	ErrOriginalNotFound = fmt.Errorf("%w: original document", httpx.ErrNotFound)
	// ErrReturnNotFound indicates an unknown return id.
	ErrReturnNotFound = fmt.Errorf("%w: return", httpx.ErrNotFound)
)

// seriesFor maps the return kind to its number series.
func seriesFor(kind Kind) string {
	if kind == KindPurchase {
		return sequence.SeriesPurchaseReturn
	}
	return sequence.SeriesSaleReturn
}

// stockSign is the stock direction of creating a return: sale returns put
// goods back on the shelf, purchase returns hand them back to the supplier.
func stockSign(kind Kind) float64 {
	if kind == KindPurchase {
		return -1
	}
	return 1
}
