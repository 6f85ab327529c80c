package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	levels map[string]float64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{levels: make(map[string]float64)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetStock(ctx context.Context, productCode string) (float64, error) {
	stock, ok := r.levels[productCode]
	if !ok {
		return 0, ErrProductNotFound
	}
	return stock, nil
}

func (t *memoryTx) ApplyDelta(ctx context.Context, productCode string, qty float64) error {
	stock, ok := t.repo.levels[productCode]
	if !ok {
		return ErrProductNotFound
	}
	if stock+qty < 0 {
		return ErrInsufficientStock
	}
	t.repo.levels[productCode] = stock + qty
	return nil
}

func TestAdjustAppliesSignedDelta(t *testing.T) {
	repo := newMemoryRepo()
	repo.levels["X"] = 10
	ledger := NewLedger(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, ledger.Adjust(ctx, AdjustmentInput{ProductCode: "X", Delta: -3}))
	stock, err := ledger.GetStock(ctx, "X")
	require.NoError(t, err)
	require.Equal(t, 7.0, stock)

	require.NoError(t, ledger.Adjust(ctx, AdjustmentInput{ProductCode: "X", Delta: 3}))
	stock, _ = ledger.GetStock(ctx, "X")
	require.Equal(t, 10.0, stock)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	repo := newMemoryRepo()
	repo.levels["X"] = 2
	ledger := NewLedger(repo, nil, nil)

	err := ledger.Adjust(context.Background(), AdjustmentInput{ProductCode: "X", Delta: -5})
	require.ErrorIs(t, err, ErrInsufficientStock)
	stock, _ := ledger.GetStock(context.Background(), "X")
	require.Equal(t, 2.0, stock)
}

func TestAdjustRejectsZeroAndUnknown(t *testing.T) {
	ledger := NewLedger(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, ledger.Adjust(ctx, AdjustmentInput{ProductCode: "X", Delta: 0}), ErrZeroDelta)
	require.ErrorIs(t, ledger.Adjust(ctx, AdjustmentInput{ProductCode: "nope", Delta: 1}), ErrProductNotFound)
}
