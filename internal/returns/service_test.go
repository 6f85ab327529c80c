package returns

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// rawLine mirrors a stored document line; aggregation into OriginalLine
// happens in GetOriginalLines, like the SQL does.
type rawLine struct {
	code  string
	price float64
	qty   float64
}

type originalDoc struct {
	lines []rawLine
	state ReversalState
}

type memoryState struct {
	stock     map[string]float64
	sales     map[string]*originalDoc
	purchases map[string]*originalDoc
	returns   map[string]ReturnDocument
	counter   int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		stock:     map[string]float64{},
		sales:     map[string]*originalDoc{},
		purchases: map[string]*originalDoc{},
		returns:   map[string]ReturnDocument{},
		counter:   s.counter,
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = &originalDoc{lines: append([]rawLine(nil), v.lines...), state: v.state}
	}
	for k, v := range s.purchases {
		c.purchases[k] = &originalDoc{lines: append([]rawLine(nil), v.lines...), state: v.state}
	}
	for k, v := range s.returns {
		v.Lines = append([]ReturnLine(nil), v.Lines...)
		c.returns[k] = v
	}
	return c
}

func (s *memoryState) docs(kind Kind) map[string]*originalDoc {
	if kind == KindPurchase {
		return s.purchases
	}
	return s.sales
}

type memoryRepo struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		stock:     map[string]float64{},
		sales:     map[string]*originalDoc{},
		purchases: map[string]*originalDoc{},
		returns:   map[string]ReturnDocument{},
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

func (r *memoryRepo) GetReturn(_ context.Context, id string) (*ReturnDocument, error) {
	doc, ok := r.state.returns[id]
	if !ok {
		return nil, ErrReturnNotFound
	}
	return &doc, nil
}

func (r *memoryRepo) ListReturns(_ context.Context, kind Kind, originalDocID string) ([]ReturnDocument, error) {
	var out []ReturnDocument
	for _, doc := range r.state.returns {
		if doc.Kind == kind && doc.OriginalDocumentID == originalDocID {
			out = append(out, doc)
		}
	}
	return out, nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetOriginalLines(_ context.Context, kind Kind, originalDocID string) (map[string]OriginalLine, error) {
	doc, ok := t.state.docs(kind)[originalDocID]
	if !ok {
		return nil, ErrOriginalNotFound
	}
	sums := map[string]rawLine{}
	for _, line := range doc.lines {
		s := sums[line.code]
		s.price += line.qty * line.price
		s.qty += line.qty
		sums[line.code] = s
	}
	out := map[string]OriginalLine{}
	for code, s := range sums {
		out[code] = OriginalLine{UnitPrice: money.Round2(s.price / s.qty), Quantity: s.qty}
	}
	return out, nil
}

func (t *memoryTx) AllocateDocumentNumber(_ context.Context, seriesCode, scope string) (string, error) {
	t.state.counter++
	return fmt.Sprintf("%s-%06d", seriesCode, t.state.counter), nil
}

func (t *memoryTx) InsertReturn(_ context.Context, doc ReturnDocument) error {
	t.state.returns[doc.ID] = doc
	return nil
}

func (t *memoryTx) InsertReturnLine(_ context.Context, line ReturnLine) error {
	doc := t.state.returns[line.ReturnID]
	doc.Lines = append(doc.Lines, line)
	t.state.returns[line.ReturnID] = doc
	return nil
}

func (t *memoryTx) DeleteReturnRows(_ context.Context, returnID string) error {
	if _, ok := t.state.returns[returnID]; !ok {
		return ErrReturnNotFound
	}
	delete(t.state.returns, returnID)
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

func (t *memoryTx) SumReturnedQuantity(_ context.Context, kind Kind, originalDocID string) (float64, error) {
	var sum float64
	for _, doc := range t.state.returns {
		if doc.Kind != kind || doc.OriginalDocumentID != originalDocID {
			continue
		}
		for _, line := range doc.Lines {
			sum += line.Quantity
		}
	}
	return sum, nil
}

func (t *memoryTx) SetReversalState(_ context.Context, kind Kind, originalDocID string, state ReversalState) error {
	doc, ok := t.state.docs(kind)[originalDocID]
	if !ok {
		return ErrOriginalNotFound
	}
	doc.state = state
	return nil
}

func seedCoordinator(t *testing.T) (*Coordinator, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	repo.state.stock["X"] = 7
	repo.state.stock["Y"] = 3
	repo.state.sales["sale-1"] = &originalDoc{
		lines: []rawLine{
			{code: "X", price: 10, qty: 3},
			{code: "Y", price: 20, qty: 2},
		},
	}
	repo.state.purchases["purchase-1"] = &originalDoc{
		lines: []rawLine{
			{code: "X", price: 6, qty: 5},
		},
	}
	return NewCoordinator(repo, nil), repo
}

func TestSaleReturnWeightedPriceForRepeatedProduct(t *testing.T) {
	coord, repo := seedCoordinator(t)
	repo.state.sales["sale-2"] = &originalDoc{
		lines: []rawLine{
			{code: "X", price: 10, qty: 2},
			{code: "X", price: 13, qty: 1},
		},
	}

	result, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindSale,
		OriginalDocumentID: "sale-2",
		Scope:              "main",
		Lines:              []LineInput{{ProductCode: "X", Quantity: 3}},
	})
	require.NoError(t, err)
	// (2*10 + 1*13) / 3 = 11.00, independent of line order.
	require.Equal(t, 33.0, result.Total)
	require.Equal(t, ReversalFull, result.ReversalState)

	doc, err := coord.GetReturn(context.Background(), result.ReturnID)
	require.NoError(t, err)
	require.Equal(t, 11.0, doc.Lines[0].UnitPrice)
}

func TestCreateSaleReturnReinstatesStock(t *testing.T) {
	coord, repo := seedCoordinator(t)

	result, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindSale,
		OriginalDocumentID: "sale-1",
		Scope:              "main",
		Lines:              []LineInput{{ProductCode: "X", Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, "DN-000001", result.DocumentNumber)
	require.Equal(t, 30.0, result.Total)
	require.Equal(t, ReversalPartial, result.ReversalState)
	require.Equal(t, 10.0, repo.state.stock["X"])
	require.Equal(t, ReversalPartial, repo.state.sales["sale-1"].state)
}

func TestReversalStateProgressesToFull(t *testing.T) {
	coord, repo := seedCoordinator(t)

	// Original document totals quantity 5 across two lines.
	first, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindSale,
		OriginalDocumentID: "sale-1",
		Scope:              "main",
		Lines:              []LineInput{{ProductCode: "X", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, ReversalPartial, first.ReversalState)

	second, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindSale,
		OriginalDocumentID: "sale-1",
		Scope:              "main",
		Lines: []LineInput{
			{ProductCode: "X", Quantity: 1},
			{ProductCode: "Y", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, ReversalFull, second.ReversalState)
	require.Equal(t, ReversalFull, repo.state.sales["sale-1"].state)
}

func TestPurchaseReturnRemovesStock(t *testing.T) {
	coord, repo := seedCoordinator(t)

	result, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindPurchase,
		OriginalDocumentID: "purchase-1",
		Scope:              "main",
		Lines:              []LineInput{{ProductCode: "X", Quantity: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, "DF-000001", result.DocumentNumber)
	require.Equal(t, ReversalFull, result.ReversalState)
	require.Equal(t, 2.0, repo.state.stock["X"])
}

func TestPurchaseReturnCannotPushStockNegative(t *testing.T) {
	coord, repo := seedCoordinator(t)
	repo.state.stock["X"] = 2

	_, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindPurchase,
		OriginalDocumentID: "purchase-1",
		Scope:              "main",
		Lines:              []LineInput{{ProductCode: "X", Quantity: 5}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 2.0, repo.state.stock["X"])
	require.Empty(t, repo.state.returns)
}

func TestDeleteReturnInvertsStockAndRecomputes(t *testing.T) {
	coord, repo := seedCoordinator(t)

	result, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind:               KindSale,
		OriginalDocumentID: "sale-1",
		Scope:              "main",
		Lines:              []LineInput{{ProductCode: "X", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 9.0, repo.state.stock["X"])
	require.Equal(t, ReversalPartial, repo.state.sales["sale-1"].state)

	require.NoError(t, coord.DeleteReturn(context.Background(), result.ReturnID))
	require.Equal(t, 7.0, repo.state.stock["X"])
	require.Equal(t, ReversalNone, repo.state.sales["sale-1"].state)
	require.Empty(t, repo.state.returns)
}

func TestCreateReturnValidation(t *testing.T) {
	coord, _ := seedCoordinator(t)

	_, err := coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind: KindSale, OriginalDocumentID: "sale-1", Scope: "main",
	})
	require.ErrorIs(t, err, ErrEmptyLines)

	_, err = coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind: KindSale, OriginalDocumentID: "sale-1", Scope: "main",
		Lines: []LineInput{{ProductCode: "X", Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind: KindSale, OriginalDocumentID: "sale-1", Scope: "main",
		Lines: []LineInput{{ProductCode: "Z", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrUnknownProduct)

	_, err = coord.CreateReturn(context.Background(), CreateReturnRequest{
		Kind: KindSale, OriginalDocumentID: "missing", Scope: "main",
		Lines: []LineInput{{ProductCode: "X", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrOriginalNotFound)
}
