package bandit

import (
	"math"
	"math/rand/v2"
	"testing"

	"skincareReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateArm_AppliesWeightedReward(t *testing.T) {
	arm := domain.NewArm(10)

	arm, err := UpdateArm(arm, 0.5, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, arm.Alpha, 1e-12)
	assert.InDelta(t, 1.5, arm.Beta, 1e-12)
	assert.Equal(t, int64(1), arm.Impressions)
	assert.InDelta(t, 0.5, arm.TotalReward, 1e-12)

	arm, err = UpdateArm(arm, 1.0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, arm.Alpha, 1e-12)
	assert.InDelta(t, 1.5, arm.Beta, 1e-12)
	assert.Equal(t, int64(4), arm.Impressions)
	assert.InDelta(t, 3.5, arm.TotalReward, 1e-12)
}

func TestUpdateArm_ZeroWeightIsNoop(t *testing.T) {
	arm := domain.NewArm(3)

	got, err := UpdateArm(arm, 0.7, 0)
	require.NoError(t, err)
	assert.Equal(t, arm, got)
}

func TestUpdateArm_RejectsOutOfDomain(t *testing.T) {
	arm := domain.NewArm(1)

	tests := []struct {
		name   string
		reward float64
		weight int64
	}{
		{"negative reward", -0.1, 1},
		{"reward above one", 1.01, 1},
		{"nan reward", math.NaN(), 1},
		{"negative weight", 0.5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UpdateArm(arm, tt.reward, tt.weight)
			require.ErrorIs(t, err, domain.ErrInvalidReward)
			assert.Equal(t, arm, got, "arm must be unchanged on rejection")
		})
	}
}

func TestUpdateArm_RejectsImpressionOverflow(t *testing.T) {
	arm, err := UpdateArm(domain.NewArm(10), 1, math.MaxInt64)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), arm.Impressions)

	got, err := UpdateArm(arm, 1, 1)
	require.ErrorIs(t, err, domain.ErrInvalidReward)
	assert.Equal(t, arm, got)

	got, err = UpdateArm(arm, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, arm.Impressions, got.Impressions)
}

func TestUpdateArm_InvariantsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	arm := domain.NewArm(42)

	for i := 0; i < 5000; i++ {
		var err error
		arm, err = UpdateArm(arm, rng.Float64(), int64(rng.IntN(4)))
		require.NoError(t, err)

		require.GreaterOrEqual(t, arm.Alpha, 1.0)
		require.GreaterOrEqual(t, arm.Beta, 1.0)
		require.GreaterOrEqual(t, arm.Impressions, int64(0))
		require.GreaterOrEqual(t, arm.TotalReward, 0.0)
		require.LessOrEqual(t, arm.TotalReward, float64(arm.Impressions)+1e-9)
	}
}

func TestExpectedReward_IncreasesWithBetterThanMeanReward(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	arm := domain.NewArm(5)

	for i := 0; i < 1000; i++ {
		before := ExpectedReward(arm)
		r := rng.Float64()

		next, err := UpdateArm(arm, r, 1)
		require.NoError(t, err)

		if r > before {
			assert.GreaterOrEqual(t, ExpectedReward(next), before)
		}
		arm = next
	}
}

func TestExpectedReward_Prior(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedReward(domain.NewArm(1)), 1e-12)
	assert.Equal(t, 0.0, ExpectedReward(domain.Arm{}))
}

func TestSampleArm_EmpiricalMeanConvergesToExpectedReward(t *testing.T) {
	arms := []domain.Arm{
		domain.NewArm(1),
		{ProductID: 2, Alpha: 3, Beta: 7},
		{ProductID: 3, Alpha: 40, Beta: 12},
	}
	src := rand.NewPCG(2024, 10)

	const draws = 20000
	for _, arm := range arms {
		sum := 0.0
		for i := 0; i < draws; i++ {
			x := SampleArm(arm, src)
			require.GreaterOrEqual(t, x, 0.0)
			require.LessOrEqual(t, x, 1.0)
			sum += x
		}

		// standard error of a Beta mean is below 0.3/sqrt(draws) ~= 0.002
		assert.InDelta(t, ExpectedReward(arm), sum/draws, 0.01, "arm %d", arm.ProductID)
	}
}

func TestSampleArm_DoesNotMutate(t *testing.T) {
	arm := domain.Arm{ProductID: 9, Alpha: 2, Beta: 5, Impressions: 5, TotalReward: 1}
	before := arm

	_ = SampleArm(arm, rand.NewPCG(1, 1))
	assert.Equal(t, before, arm)
}
