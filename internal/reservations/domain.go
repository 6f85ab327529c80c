package reservations

import (
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// State is the reservation lifecycle state.
type State string

const (
	StateActive    State = "active"
	StateCancelled State = "cancelled"
	StateCompleted State = "completed"
)

// Line is one snapshot position, priced at reservation time. The snapshot
// price is informational only; conversion always re-prices from the catalog.
type Line struct {
	ProductCode string  `json:"product_code"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxPercent  float64 `json:"tax_percent"`
	Description string  `json:"description,omitempty"`
}

// Reservation holds a customer order for a future event date. Stock for the
// snapshot quantities is debited when the reservation is created and
// reinstated on cancellation.
type Reservation struct {
	ID              string    `json:"id"`
	CustomerRef     string    `json:"customer_ref"`
	ReservationDate time.Time `json:"reservation_date"`
	EventDate       time.Time `json:"event_date"`
	DepositAmount   float64   `json:"deposit_amount"`
	State           State     `json:"state"`
	Lines           []Line    `json:"lines"`
}

// CreateRequest carries a new reservation.
type CreateRequest struct {
	CustomerRef   string      `json:"customer_ref" validate:"required,max=100"`
	EventDate     time.Time   `json:"event_date" validate:"required"`
	DepositAmount float64     `json:"deposit_amount" validate:"gte=0"`
	Lines         []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// LineInput is one requested snapshot position.
type LineInput struct {
	ProductCode string  `json:"product_code" validate:"required,max=50"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Description string  `json:"description,omitempty"`
}

// CreditTerms parameterises a credit conversion. The down payment is always
// the reservation deposit and cannot be supplied here.
type CreditTerms struct {
	InterestPercent  float64 `json:"interest_percent" validate:"gte=0"`
	InstallmentCount int     `json:"installment_count" validate:"gt=0"`
	TermDays         int     `json:"term_days" validate:"gt=0"`
}

// ConvertRequest turns an active reservation into a sale. Edits maps product
// codes from the snapshot to their final quantity; zero removes the line.
// Products absent from Edits keep their snapshot quantity.
type ConvertRequest struct {
	Scope         string             `json:"scope" validate:"required,max=50"`
	SeriesCode    string             `json:"series_code" validate:"required"`
	PaymentKind   string             `json:"payment_kind" validate:"required,oneof=cash credit plan"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Edits         map[string]float64 `json:"edits,omitempty"`
	Credit        *CreditTerms       `json:"credit,omitempty"`
}

var (
	// ErrNotFound indicates an unknown reservation id.
	ErrNotFound = fmt.Errorf("%w: reservation", httpx.ErrNotFound)
	// ErrNotActive indicates a lifecycle operation on a non-active reservation.
	ErrNotActive = fmt.Errorf("%w: reservation is not active", httpx.ErrConflict)
	// ErrEmptyLines indicates a reservation or conversion with no positions left.
	ErrEmptyLines = fmt.Errorf("%w: reservation requires at least one line", httpx.ErrValidation)
	// ErrInvalidQuantity indicates a non-positive snapshot quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: reservation quantity must be positive", httpx.ErrValidation)
	// ErrDuplicateProduct indicates a product listed twice in one
	// reservation. Quantity edits are keyed by product code, so each
	// product gets exactly one snapshot line.
	ErrDuplicateProduct = fmt.Errorf("%w: product listed more than once", httpx.ErrValidation)
	// ErrUnknownEdit indicates an edit for a product outside the snapshot.
	ErrUnknownEdit = fmt.Errorf("%w: edit references a product not in the reservation", httpx.ErrValidation)
	// ErrInsufficientStock indicates a quantity increase beyond current stock.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock for quantity increase", httpx.ErrValidation)
)
