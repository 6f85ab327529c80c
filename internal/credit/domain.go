package credit

import (
	"fmt"
	"time"

	"github.com/mostrador/mostrador/internal/platform/httpx"
	"github.com/mostrador/mostrador/internal/sales"
)

// Schedule is the full installment ledger of a credit sale. DownPayment
// is resolved only through the explicit link on the summary row; an
// unlinked first payment is an ordinary payment.
type Schedule struct {
	SaleID             string              `json:"sale_id"`
	TermDays           int                 `json:"term_days"`
	OutstandingBalance float64             `json:"outstanding_balance"`
	Summary            *sales.Installment  `json:"summary,omitempty"`
	Details            []sales.Installment `json:"details"`
	Payments           []sales.Payment     `json:"payments"`
	DownPayment        *sales.Payment      `json:"down_payment,omitempty"`
}

// RegisterPaymentRequest carries a post-schedule payment.
type RegisterPaymentRequest struct {
	SaleID      string    `json:"sale_id" validate:"required,uuid"`
	CustomerRef string    `json:"customer_ref" validate:"required,max=100"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	Date        time.Time `json:"date"`
}

// PaymentResult is the success payload of RegisterPayment.
type PaymentResult struct {
	PaymentID          int64   `json:"payment_id"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

var (
	// ErrNoCreditAccount indicates the sale carries no credit account.
	ErrNoCreditAccount = fmt.Errorf("%w: credit account", httpx.ErrNotFound)
	// ErrInvalidAmount indicates a non-positive payment amount.
	ErrInvalidAmount = fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	// ErrOverpayment indicates a payment exceeding the outstanding balance.
	ErrOverpayment = fmt.Errorf("%w: payment exceeds outstanding balance", httpx.ErrValidation)
)
