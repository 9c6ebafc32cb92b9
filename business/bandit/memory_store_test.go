package bandit

import (
	"context"
	"math"
	"sync"
	"testing"

	"skincareReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetOrCreateReturnsPrior(t *testing.T) {
	store := NewMemoryStore()

	arm, err := store.GetOrCreate(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), arm.ProductID)
	assert.Equal(t, 1.0, arm.Alpha)
	assert.Equal(t, 1.0, arm.Beta)
	assert.Equal(t, int64(0), arm.Impressions)

	_, err = store.GetOrCreate(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidProductID)
}

func TestMemoryStore_ConcurrentUpdatesOfOneProductAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const workers = 200
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			reward := float64(i%3) / 2
			_, err := store.ApplyUpdate(ctx, 1, reward, 1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	arm, err := store.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), arm.Impressions)
	assert.InDelta(t, 2+workers, arm.Alpha+arm.Beta, 1e-9)
	assert.InDelta(t, arm.Alpha-1, arm.TotalReward, 1e-9)
}

func TestMemoryStore_ConcurrentUpdatesOfDifferentProducts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const products = 50
	const perProduct = 20

	var wg sync.WaitGroup
	for p := uint64(1); p <= products; p++ {
		for i := 0; i < perProduct; i++ {
			wg.Add(1)
			go func(id uint64) {
				defer wg.Done()
				_, err := store.ApplyUpdate(ctx, id, 1, 1)
				assert.NoError(t, err)
			}(p)
		}
	}
	wg.Wait()

	arms, err := store.AllStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, arms, products)
	for i, arm := range arms {
		assert.Equal(t, uint64(i+1), arm.ProductID, "arms must be ordered by id")
		assert.Equal(t, int64(perProduct), arm.Impressions)
		assert.InDelta(t, 1+perProduct, arm.Alpha, 1e-9)
		assert.InDelta(t, 1.0, arm.Beta, 1e-9)
	}
}

func TestMemoryStore_RejectedUpdateLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.ApplyUpdate(ctx, 5, 1.5, 1)
	require.ErrorIs(t, err, domain.ErrInvalidReward)

	_, err = store.ApplyUpdate(ctx, 5, 0.5, -1)
	require.ErrorIs(t, err, domain.ErrInvalidReward)

	arms, err := store.AllStatistics(ctx)
	require.NoError(t, err)
	assert.Empty(t, arms)
}

func TestMemoryStore_ImpressionOverflowIsRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.ApplyUpdate(ctx, 10, 1, math.MaxInt64)
	require.NoError(t, err)

	_, err = store.ApplyUpdate(ctx, 10, 1, 1)
	require.ErrorIs(t, err, domain.ErrInvalidReward)

	arm, err := store.GetOrCreate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), arm.Impressions)
	assert.LessOrEqual(t, arm.TotalReward, float64(arm.Impressions))
}

func TestMemoryStore_ListArms(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.ApplyUpdate(ctx, 2, 1, 1)
	require.NoError(t, err)

	arms, err := store.ListArms(ctx, []uint64{2, 3})
	require.NoError(t, err)
	require.Len(t, arms, 2)
	assert.Equal(t, int64(1), arms[2].Impressions)
	assert.Equal(t, domain.NewArm(3).Alpha, arms[3].Alpha)

	all, err := store.ListArms(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "missing ids are created with the prior")

	_, err = store.ListArms(ctx, []uint64{4, 0})
	require.ErrorIs(t, err, domain.ErrInvalidProductID)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	_, err := store.ApplyUpdate(ctx, 1, 1, 1)
	require.ErrorIs(t, err, context.Canceled)

	arms, err := store.AllStatistics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, arms)
}
