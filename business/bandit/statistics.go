package bandit

import (
	"context"
	"fmt"
	"sort"

	"skincareReco/domain"
)

// Reporter aggregates arm state for the API. It never caches.
type Reporter struct {
	store ArmStore
}

func NewReporter(store ArmStore) *Reporter {
	return &Reporter{store: store}
}

// Statistics reports the given products, or every known arm when productIDs is empty.
func (r *Reporter) Statistics(ctx context.Context, productIDs []uint64) (domain.BanditStatistics, error) {
	var arms []domain.Arm

	if len(productIDs) > 0 {
		byID, err := r.store.ListArms(ctx, productIDs)
		if err != nil {
			return domain.BanditStatistics{}, fmt.Errorf("list arms: %w", err)
		}
		arms = make([]domain.Arm, 0, len(byID))
		for _, arm := range byID {
			arms = append(arms, arm)
		}
		sort.Slice(arms, func(i, j int) bool {
			return arms[i].ProductID < arms[j].ProductID
		})
	} else {
		all, err := r.store.AllStatistics(ctx)
		if err != nil {
			return domain.BanditStatistics{}, fmt.Errorf("all statistics: %w", err)
		}
		arms = all
	}

	out := domain.BanditStatistics{
		Arms:    make([]domain.ArmSummary, 0, len(arms)),
		Summary: Aggregate(arms),
	}
	for _, arm := range arms {
		out.Arms = append(out.Arms, Summarize(arm))
	}
	return out, nil
}

// Aggregate computes the global summary over arms.
func Aggregate(arms []domain.Arm) domain.StatisticsSummary {
	var s domain.StatisticsSummary
	if len(arms) == 0 {
		return s
	}

	var sumExpected, sumAlpha, sumBeta float64
	for _, arm := range arms {
		s.TotalImpressions += arm.Impressions
		s.TotalReward += arm.TotalReward
		sumExpected += ExpectedReward(arm)
		sumAlpha += arm.Alpha
		sumBeta += arm.Beta
	}

	n := float64(len(arms))
	s.TotalArms = len(arms)
	s.MeanExpectedReward = sumExpected / n
	s.AverageAlpha = sumAlpha / n
	s.AverageBeta = sumBeta / n
	if s.TotalImpressions > 0 {
		s.AverageRewardRate = s.TotalReward / float64(s.TotalImpressions)
	}
	return s
}
