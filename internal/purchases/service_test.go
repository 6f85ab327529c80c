package purchases

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryState struct {
	stock     map[string]float64
	purchases map[string]PurchaseDocument
	lines     map[string][]PurchaseLine
	counter   int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		stock:     map[string]float64{},
		purchases: map[string]PurchaseDocument{},
		lines:     map[string][]PurchaseLine{},
		counter:   s.counter,
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]PurchaseLine(nil), v...)
	}
	return c
}

type memoryRepo struct {
	state   *memoryState
	failTag string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		stock:     map[string]float64{},
		purchases: map[string]PurchaseDocument{},
		lines:     map[string][]PurchaseLine{},
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	pending := r.state.clone()
	if err := fn(ctx, &memoryTx{state: pending, failTag: r.failTag}); err != nil {
		return err
	}
	r.state = pending
	return nil
}

func (r *memoryRepo) GetPurchase(_ context.Context, id string) (*PurchaseDocument, error) {
	doc, ok := r.state.purchases[id]
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	doc.Lines = append([]PurchaseLine(nil), r.state.lines[id]...)
	return &doc, nil
}

type memoryTx struct {
	state   *memoryState
	failTag string
}

func (t *memoryTx) AllocateDocumentNumber(_ context.Context, seriesCode, scope string) (string, error) {
	t.state.counter++
	return fmt.Sprintf("%s-%06d", seriesCode, t.state.counter), nil
}

func (t *memoryTx) InsertPurchase(_ context.Context, doc PurchaseDocument) error {
	t.state.purchases[doc.ID] = doc
	return nil
}

func (t *memoryTx) InsertPurchaseLine(_ context.Context, line PurchaseLine) error {
	if t.failTag == "line" {
		return fmt.Errorf("induced line failure")
	}
	t.state.lines[line.PurchaseID] = append(t.state.lines[line.PurchaseID], line)
	return nil
}

func (t *memoryTx) ApplyStockDelta(_ context.Context, productCode string, qty float64) error {
	t.state.stock[productCode] += qty
	return nil
}

func TestCreatePurchaseAddsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.stock["X"] = 2
	svc := NewService(repo, nil)

	result, err := svc.CreatePurchase(context.Background(), CreatePurchaseRequest{
		SupplierRef: "acme-supply",
		Scope:       "main",
		Lines: []LineInput{
			{ProductCode: "X", Quantity: 5, UnitPrice: 6},
			{ProductCode: "Y", Quantity: 2, UnitPrice: 15.5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "C-000001", result.DocumentNumber)
	require.Equal(t, 61.0, result.Total)
	require.Equal(t, 7.0, repo.state.stock["X"])
	require.Equal(t, 2.0, repo.state.stock["Y"])

	doc, err := svc.GetPurchase(context.Background(), result.PurchaseID)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)
	require.Equal(t, "none", doc.ReversalState)
}

func TestCreatePurchaseRollsBackTogether(t *testing.T) {
	repo := newMemoryRepo()
	repo.failTag = "line"
	svc := NewService(repo, nil)

	_, err := svc.CreatePurchase(context.Background(), CreatePurchaseRequest{
		SupplierRef: "acme-supply",
		Scope:       "main",
		Lines:       []LineInput{{ProductCode: "X", Quantity: 5, UnitPrice: 6}},
	})
	require.Error(t, err)
	require.Empty(t, repo.state.purchases)
	require.Equal(t, 0.0, repo.state.stock["X"])
	require.Equal(t, int64(0), repo.state.counter)
}

func TestCreatePurchaseValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.CreatePurchase(context.Background(), CreatePurchaseRequest{SupplierRef: "s", Scope: "main"})
	require.ErrorIs(t, err, ErrEmptyLines)

	_, err = svc.CreatePurchase(context.Background(), CreatePurchaseRequest{
		SupplierRef: "s", Scope: "main",
		Lines: []LineInput{{ProductCode: "X", Quantity: -1}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
