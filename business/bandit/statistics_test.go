package bandit

import (
	"context"
	"testing"

	"skincareReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	arms := []domain.Arm{
		{ProductID: 1, Alpha: 3, Beta: 1, Impressions: 2, TotalReward: 2},
		{ProductID: 2, Alpha: 1, Beta: 3, Impressions: 2, TotalReward: 0},
	}

	s := Aggregate(arms)
	assert.Equal(t, 2, s.TotalArms)
	assert.Equal(t, int64(4), s.TotalImpressions)
	assert.InDelta(t, 2.0, s.TotalReward, 1e-12)
	assert.InDelta(t, 0.5, s.MeanExpectedReward, 1e-12)
	assert.InDelta(t, 2.0, s.AverageAlpha, 1e-12)
	assert.InDelta(t, 2.0, s.AverageBeta, 1e-12)
	assert.InDelta(t, 0.5, s.AverageRewardRate, 1e-12)

	assert.Equal(t, domain.StatisticsSummary{}, Aggregate(nil))
}

func TestReporter_Statistics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.ApplyUpdate(ctx, 8, 1, 1)
	require.NoError(t, err)
	_, err = store.ApplyUpdate(ctx, 2, 0, 1)
	require.NoError(t, err)

	rep := NewReporter(store)

	stats, err := rep.Statistics(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stats.Arms, 2)
	assert.Equal(t, uint64(2), stats.Arms[0].ProductID)
	assert.Equal(t, uint64(8), stats.Arms[1].ProductID)
	assert.InDelta(t, 2.0/3.0, stats.Arms[1].ExpectedReward, 1e-12)
	assert.Equal(t, int64(2), stats.Summary.TotalImpressions)

	stats, err = rep.Statistics(ctx, []uint64{9, 8})
	require.NoError(t, err)
	require.Len(t, stats.Arms, 2)
	assert.Equal(t, uint64(8), stats.Arms[0].ProductID)
	assert.Equal(t, uint64(9), stats.Arms[1].ProductID)
	assert.InDelta(t, 0.5, stats.Arms[1].ExpectedReward, 1e-12)
}
