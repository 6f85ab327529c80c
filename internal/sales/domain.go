package sales

import (
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// PaymentKind classifies how a sale is settled.
type PaymentKind string

const (
	PaymentKindCash   PaymentKind = "cash"
	PaymentKindCredit PaymentKind = "credit"
	PaymentKindPlan   PaymentKind = "plan"
)

// ReversalState is the derived return status of a document.
type ReversalState string

const (
	ReversalNone    ReversalState = "none"
	ReversalPartial ReversalState = "partial"
	ReversalFull    ReversalState = "full"
)

// SaleDocument is a committed sale header.
type SaleDocument struct {
	ID             string        `json:"id"`
	CustomerRef    string        `json:"customer_ref"`
	Date           time.Time     `json:"date"`
	Subtotal       float64       `json:"subtotal"`
	Discount       float64       `json:"discount"`
	Tax            float64       `json:"tax"`
	Total          float64       `json:"total"`
	PaymentKind    PaymentKind   `json:"payment_kind"`
	PaymentMethod  string        `json:"payment_method"`
	SeriesCode     string        `json:"series_code"`
	DocumentNumber string        `json:"document_number"`
	ReversalState  ReversalState `json:"reversal_state"`
	Lines          []SaleLine    `json:"lines,omitempty"`
}

// SaleLine is one sale position, owned by exactly one document.
type SaleLine struct {
	SaleID      string  `json:"-"`
	Seq         int     `json:"seq"`
	ProductCode string  `json:"product_code"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Description string  `json:"description"`
}

// CreditAccount tracks the open balance of a credit sale, 1:1 with the
// sale document.
type CreditAccount struct {
	SaleID             string  `json:"sale_id"`
	TermDays           int     `json:"term_days"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

// Installment is one row of the schedule. Seq 1 is the synthetic summary
// row (total financed, total interest, average value, original count);
// detail rows follow at seq 2..N+1.
type Installment struct {
	SaleID          string    `json:"sale_id"`
	Seq             int       `json:"seq"`
	DueDate         time.Time `json:"due_date"`
	Principal       float64   `json:"principal"`
	Interest        float64   `json:"interest"`
	BalanceAfter    float64   `json:"balance_after"`
	PlanCount       *int      `json:"plan_count,omitempty"`
	LinkedPaymentID *int64    `json:"linked_payment_id,omitempty"`
}

// Payment is an append-only ledger entry ("abono") against a sale.
type Payment struct {
	ID          int64     `json:"id"`
	SaleID      string    `json:"sale_id"`
	CustomerRef string    `json:"customer_ref"`
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
}

// CreditConfig parameterises installment generation for a credit sale.
type CreditConfig struct {
	DownPayment      float64 `json:"down_payment" validate:"gte=0"`
	InterestPercent  float64 `json:"interest_percent"`
	InstallmentCount int     `json:"installment_count"`
	TermDays         int     `json:"term_days" validate:"gt=0"`
}

// SaleLineInput is one requested sale position. StockDelta overrides the
// default stock effect of -Quantity; reservation conversion passes the
// difference against the snapshot so only the delta moves.
type SaleLineInput struct {
	ProductCode string   `json:"product_code" validate:"required,max=50"`
	Quantity    float64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64  `json:"unit_price" validate:"gte=0"`
	TaxPercent  float64  `json:"tax_percent" validate:"gte=0,lte=100"`
	Description string   `json:"description,omitempty"`
	StockDelta  *float64 `json:"-"`
}

// CreateSaleRequest carries everything the coordinator writes in one
// transaction.
type CreateSaleRequest struct {
	CustomerRef    string             `json:"customer_ref" validate:"required,max=100"`
	Date           time.Time          `json:"date"`
	Scope          string             `json:"scope" validate:"required,max=50"`
	SeriesCode     string             `json:"series_code" validate:"required"`
	DocumentNumber string             `json:"document_number,omitempty"`
	DiscountKind   money.DiscountKind `json:"discount_kind,omitempty"`
	DiscountValue  float64            `json:"discount_value" validate:"gte=0"`
	PaymentKind    PaymentKind        `json:"payment_kind" validate:"required,oneof=cash credit plan"`
	PaymentMethod  string             `json:"payment_method,omitempty"`
	Lines          []SaleLineInput    `json:"lines" validate:"required,min=1,dive"`
	Credit         *CreditConfig      `json:"credit,omitempty"`
	ReservationID  *string            `json:"-"`
	// ExtraStockDeltas are applied in the same transaction as the sale,
	// keyed by product code. Reservation conversion reinstates removed
	// lines through here so the reinstatement commits with the document.
	ExtraStockDeltas map[string]float64 `json:"-"`
}

// SaleResult is the success payload of CreateSale.
type SaleResult struct {
	SaleID             string  `json:"sale_id"`
	DocumentNumber     string  `json:"document_number"`
	Subtotal           float64 `json:"subtotal"`
	Discount           float64 `json:"discount"`
	Tax                float64 `json:"tax"`
	Total              float64 `json:"total"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

var (
	// ErrEmptyLines indicates a sale without positions.
	ErrEmptyLines = fmt.Errorf("%w: sale requires at least one line", httpx.ErrValidation)
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: line quantity must be positive", httpx.ErrValidation)
	// ErrCreditConfigMissing indicates a credit sale without terms.
	ErrCreditConfigMissing = fmt.Errorf("%w: credit sale requires credit terms", httpx.ErrValidation)
	// ErrSaleNotFound indicates an unknown sale id.
	ErrSaleNotFound = fmt.Errorf("%w: sale", httpx.ErrNotFound)
)
