package badger

import (
	"context"
	"math"
	"sync"
	"testing"

	"skincareReco/domain"
	"skincareReco/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ArmStore {
	t.Helper()

	db, err := database.OpenBadger(database.BadgerInMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewArmStore(db)
}

func TestArmStore_ApplyUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	arm, err := store.ApplyUpdate(ctx, 10, 0.5, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, arm.Alpha, 1e-12)
	assert.InDelta(t, 1.5, arm.Beta, 1e-12)

	arm, err = store.ApplyUpdate(ctx, 10, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, arm.Alpha, 1e-12)
	assert.Equal(t, int64(2), arm.Impressions)

	got, err := store.GetOrCreate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, arm.Alpha, got.Alpha)
	assert.Equal(t, arm.Beta, got.Beta)
}

func TestArmStore_RejectsInvalidUpdates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.ApplyUpdate(ctx, 3, -0.5, 1)
	require.ErrorIs(t, err, domain.ErrInvalidReward)

	_, err = store.ApplyUpdate(ctx, 0, 0.5, 1)
	require.ErrorIs(t, err, domain.ErrInvalidProductID)

	arms, err := store.AllStatistics(ctx)
	require.NoError(t, err)
	assert.Empty(t, arms)
}

func TestArmStore_ImpressionOverflowIsRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.ApplyUpdate(ctx, 7, 1, math.MaxInt64)
	require.NoError(t, err)

	_, err = store.ApplyUpdate(ctx, 7, 1, 1)
	require.ErrorIs(t, err, domain.ErrInvalidReward)

	arm, err := store.GetOrCreate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), arm.Impressions)
}

func TestArmStore_ConcurrentUpdatesOfOneProduct(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const workers = 4
	const perWorker = 10

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := store.ApplyUpdate(ctx, 1, 1, 1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	arm, err := store.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), arm.Impressions)
	assert.InDelta(t, 1+workers*perWorker, arm.Alpha, 1e-9)
}

func TestArmStore_ListArmsAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []uint64{100, 7, 42} {
		_, err := store.ApplyUpdate(ctx, id, 0, 1)
		require.NoError(t, err)
	}

	arms, err := store.ListArms(ctx, []uint64{7, 8})
	require.NoError(t, err)
	require.Len(t, arms, 2)
	assert.Equal(t, int64(1), arms[7].Impressions)
	assert.Equal(t, 1.0, arms[8].Alpha)

	all, err := store.AllStatistics(ctx)
	require.NoError(t, err)
	ids := make([]uint64, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.ProductID)
	}
	assert.Equal(t, []uint64{7, 8, 42, 100}, ids)

	byID, err := store.ListArms(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, byID, 4)
}

func TestArmStore_ListArmsAlongsideWriters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ids := []uint64{1, 2, 3, 4, 5}

	const writers, updatesPerWriter = 4, 25
	var wg sync.WaitGroup
	wg.Add(writers + 1)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < updatesPerWriter; i++ {
				_, err := store.ApplyUpdate(ctx, ids[(w+i)%len(ids)], 0.5, 1)
				assert.NoError(t, err)
			}
		}(w)
	}
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			arms, err := store.ListArms(ctx, append(ids, ids[0]))
			if assert.NoError(t, err) {
				assert.Len(t, arms, len(ids))
			}
		}
	}()
	wg.Wait()

	arms, err := store.ListArms(ctx, ids)
	require.NoError(t, err)
	var total int64
	for _, arm := range arms {
		total += arm.Impressions
	}
	assert.Equal(t, int64(writers*updatesPerWriter), total)
}
