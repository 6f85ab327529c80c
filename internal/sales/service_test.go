package sales

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mostrador/mostrador/internal/platform/httpx"
	"github.com/mostrador/mostrador/internal/shared"
)

type memoryState struct {
	stock        map[string]float64
	sales        map[string]SaleDocument
	lines        map[string][]SaleLine
	accounts     map[string]CreditAccount
	installments map[string][]Installment
	payments     []Payment
	reservations map[string]string
	counter      int64
	nextPayment  int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		stock:        map[string]float64{},
		sales:        map[string]SaleDocument{},
		lines:        map[string][]SaleLine{},
		accounts:     map[string]CreditAccount{},
		installments: map[string][]Installment{},
		payments:     append([]Payment(nil), s.payments...),
		reservations: map[string]string{},
		counter:      s.counter,
		nextPayment:  s.nextPayment,
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]SaleLine(nil), v...)
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.installments {
		c.installments[k] = append([]Installment(nil), v...)
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// memoryRepo applies writes to a cloned state and swaps it in on commit,
// so a failed transaction leaves the base state untouched.
type memoryRepo struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		stock:        map[string]float64{},
		sales:        map[string]SaleDocument{},
		lines:        map[string][]SaleLine{},
		accounts:     map[string]CreditAccount{},
		installments: map[string][]Installment{},
		reservations: map[string]string{},
		nextPayment:  1,
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	pending := r.state.clone()
	if err := fn(ctx, &memoryTx{state: pending}); err != nil {
		return err
	}
	r.state = pending
	return nil
}

func (r *memoryRepo) GetSale(_ context.Context, id string) (*SaleDocument, error) {
	doc, ok := r.state.sales[id]
	if !ok {
		return nil, ErrSaleNotFound
	}
	doc.Lines = append([]SaleLine(nil), r.state.lines[id]...)
	return &doc, nil
}

func (r *memoryRepo) ListSales(_ context.Context, limit, offset int) ([]SaleDocument, error) {
	var out []SaleDocument
	for _, doc := range r.state.sales {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) AllocateDocumentNumber(_ context.Context, seriesCode, scope string) (string, error) {
	t.state.counter++
	return fmt.Sprintf("001-001-%06d", t.state.counter), nil
}

func (t *memoryTx) InsertSale(_ context.Context, doc SaleDocument) error {
	t.state.sales[doc.ID] = doc
	return nil
}

func (t *memoryTx) InsertSaleLine(_ context.Context, line SaleLine) error {
	t.state.lines[line.SaleID] = append(t.state.lines[line.SaleID], line)
	return nil
}

func (t *memoryTx) ApplyStockDelta(_ context.Context, productCode string, qty float64) error {
	current, ok := t.state.stock[productCode]
	if !ok {
		return fmt.Errorf("%w: product %s", httpx.ErrNotFound, productCode)
	}
	if current+qty < 0 {
		return fmt.Errorf("%w: insufficient stock for %s", httpx.ErrValidation, productCode)
	}
	t.state.stock[productCode] = current + qty
	return nil
}

func (t *memoryTx) InsertCreditAccount(_ context.Context, account CreditAccount) error {
	t.state.accounts[account.SaleID] = account
	return nil
}

func (t *memoryTx) InsertInstallment(_ context.Context, inst Installment) error {
	t.state.installments[inst.SaleID] = append(t.state.installments[inst.SaleID], inst)
	return nil
}

func (t *memoryTx) InsertPayment(_ context.Context, payment Payment) (int64, error) {
	payment.ID = t.state.nextPayment
	t.state.nextPayment++
	t.state.payments = append(t.state.payments, payment)
	return payment.ID, nil
}

func (t *memoryTx) MarkReservationCompleted(_ context.Context, reservationID string) error {
	if t.state.reservations[reservationID] != "active" {
		return fmt.Errorf("%w: reservation %s not active", httpx.ErrConflict, reservationID)
	}
	t.state.reservations[reservationID] = "completed"
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, shared.AuditLog) error { return nil }

func TestCreateSaleCashDebitsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["WIDGET"] = 10
	svc := NewService(repo, noopAudit{})

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "walk-in",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCash,
		Lines: []SaleLineInput{
			{ProductCode: "WIDGET", Quantity: 3, UnitPrice: 25, TaxPercent: 0},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "001-001-000001", result.DocumentNumber)
	require.Equal(t, 75.0, result.Total)
	require.Equal(t, 7.0, repo.state.stock["WIDGET"])

	doc, err := svc.GetSale(context.Background(), result.SaleID)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	require.Equal(t, ReversalNone, doc.ReversalState)
}

func TestCreateSaleTotalsWithTaxAndDiscount(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["GADGET"] = 100
	svc := NewService(repo, noopAudit{})

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef:   "acme",
		Scope:         "main",
		SeriesCode:    "F",
		PaymentKind:   PaymentKindCash,
		DiscountKind:  "percent",
		DiscountValue: 10,
		Lines: []SaleLineInput{
			{ProductCode: "GADGET", Quantity: 2, UnitPrice: 50, TaxPercent: 12},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Subtotal)
	require.Equal(t, 12.0, result.Tax)
	require.Equal(t, 11.2, result.Discount)
	require.Equal(t, 100.8, result.Total)
}

func TestCreateSaleCreditBuildsSchedule(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["SOFA"] = 5
	repo.state.reservations["res-1"] = "active"
	svc := NewService(repo, noopAudit{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "maria",
		Date:        base,
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCredit,
		Lines: []SaleLineInput{
			{ProductCode: "SOFA", Quantity: 1, UnitPrice: 300, TaxPercent: 0},
		},
		Credit: &CreditConfig{
			DownPayment:      50,
			InterestPercent:  5,
			InstallmentCount: 3,
			TermDays:         90,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 300.0, result.Total)
	require.Equal(t, 262.5, result.OutstandingBalance)

	account := repo.state.accounts[result.SaleID]
	require.Equal(t, 262.5, account.OutstandingBalance)
	require.Equal(t, 90, account.TermDays)

	insts := repo.state.installments[result.SaleID]
	require.Len(t, insts, 4)

	summary := insts[0]
	require.Equal(t, 1, summary.Seq)
	require.Equal(t, 262.5, summary.Principal)
	require.Equal(t, 12.5, summary.Interest)
	require.Equal(t, 87.5, summary.BalanceAfter)
	require.NotNil(t, summary.PlanCount)
	require.Equal(t, 3, *summary.PlanCount)
	require.NotNil(t, summary.LinkedPaymentID)

	require.Len(t, repo.state.payments, 1)
	require.Equal(t, 50.0, repo.state.payments[0].Amount)
	require.Equal(t, *summary.LinkedPaymentID, repo.state.payments[0].ID)

	var principal, interest float64
	for _, inst := range insts[1:] {
		principal += inst.Principal
		interest += inst.Interest
	}
	require.InDelta(t, 262.5, principal, 0.001)
	require.InDelta(t, 12.5, interest, 0.001)
	require.Equal(t, 0.0, insts[3].BalanceAfter)
	require.Equal(t, base.AddDate(0, 0, 90), insts[3].DueDate)
}

func TestCreateSaleNoDownPaymentHasNoLink(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["SOFA"] = 5
	svc := NewService(repo, noopAudit{})

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "jose",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCredit,
		Lines: []SaleLineInput{
			{ProductCode: "SOFA", Quantity: 1, UnitPrice: 100, TaxPercent: 0},
		},
		Credit: &CreditConfig{InstallmentCount: 2, TermDays: 60},
	})
	require.NoError(t, err)
	require.Empty(t, repo.state.payments)
	require.Nil(t, repo.state.installments[result.SaleID][0].LinkedPaymentID)
}

func TestCreateSaleRollsBackOnInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["WIDGET"] = 2
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "walk-in",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCash,
		Lines: []SaleLineInput{
			{ProductCode: "WIDGET", Quantity: 5, UnitPrice: 10},
		},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Empty(t, repo.state.sales)
	require.Equal(t, 2.0, repo.state.stock["WIDGET"])
	require.Equal(t, int64(0), repo.state.counter)
}

func TestCreateSaleValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "x", Scope: "main", SeriesCode: "N", PaymentKind: PaymentKindCash,
	})
	require.ErrorIs(t, err, ErrEmptyLines)

	_, err = svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "x", Scope: "main", SeriesCode: "N", PaymentKind: PaymentKindCash,
		Lines: []SaleLineInput{{ProductCode: "WIDGET", Quantity: 0, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "x", Scope: "main", SeriesCode: "N", PaymentKind: PaymentKindCredit,
		Lines: []SaleLineInput{{ProductCode: "WIDGET", Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrCreditConfigMissing)
}

func TestCreateSaleWithStockDeltaOverride(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["CHAIR"] = 10
	repo.state.reservations["res-9"] = "active"
	svc := NewService(repo, noopAudit{})

	delta := -1.0
	resID := "res-9"
	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "eva",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCash,
		Lines: []SaleLineInput{
			{ProductCode: "CHAIR", Quantity: 3, UnitPrice: 12, TaxPercent: 12, StockDelta: &delta},
		},
		ReservationID: &resID,
	})
	require.NoError(t, err)
	require.Equal(t, 9.0, repo.state.stock["CHAIR"])
	require.Equal(t, "completed", repo.state.reservations["res-9"])
}

func TestCreateSaleExtraStockDeltasCommitWithSale(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["CHAIR"] = 10
	repo.state.stock["TABLE"] = 3
	svc := NewService(repo, noopAudit{})

	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "eva",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCash,
		Lines: []SaleLineInput{
			{ProductCode: "CHAIR", Quantity: 2, UnitPrice: 12},
		},
		ExtraStockDeltas: map[string]float64{"TABLE": 1},
	})
	require.NoError(t, err)
	require.Equal(t, 8.0, repo.state.stock["CHAIR"])
	require.Equal(t, 4.0, repo.state.stock["TABLE"])
}

func TestCreateSaleExtraStockDeltasRollBackWithSale(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["CHAIR"] = 1
	repo.state.stock["TABLE"] = 3
	repo.state.reservations["res-3"] = "completed"
	svc := NewService(repo, noopAudit{})

	// The reservation mark fails after the deltas were applied to the
	// pending state; nothing may survive the rollback.
	resID := "res-3"
	_, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "eva",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCash,
		Lines: []SaleLineInput{
			{ProductCode: "CHAIR", Quantity: 1, UnitPrice: 12},
		},
		ExtraStockDeltas: map[string]float64{"TABLE": 1},
		ReservationID:    &resID,
	})
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Equal(t, 1.0, repo.state.stock["CHAIR"])
	require.Equal(t, 3.0, repo.state.stock["TABLE"])
	require.Empty(t, repo.state.sales)
}

func TestCreateSaleDownPaymentClampedToTotal(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["SOFA"] = 5
	svc := NewService(repo, noopAudit{})

	result, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		CustomerRef: "leo",
		Scope:       "main",
		SeriesCode:  "N",
		PaymentKind: PaymentKindCredit,
		Lines: []SaleLineInput{
			{ProductCode: "SOFA", Quantity: 1, UnitPrice: 100},
		},
		Credit: &CreditConfig{DownPayment: 500, InstallmentCount: 2, TermDays: 30},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.OutstandingBalance)
	require.Equal(t, 100.0, repo.state.payments[0].Amount)
}
