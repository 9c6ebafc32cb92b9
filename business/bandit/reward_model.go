package bandit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"skincareReco/domain"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleArm draws one Thompson sample from Beta(alpha, beta).
// Pure: the arm is never modified, randomness comes only from src.
func SampleArm(arm domain.Arm, src rand.Source) float64 {
	dist := distuv.Beta{
		Alpha: arm.Alpha,
		Beta:  arm.Beta,
		Src:   src,
	}
	return dist.Rand()
}

// ExpectedReward is the posterior mean alpha / (alpha + beta).
func ExpectedReward(arm domain.Arm) float64 {
	total := arm.Alpha + arm.Beta
	if total <= 0 {
		return 0
	}
	return arm.Alpha / total
}

// UpdateArm applies weight observations of normalizedReward and returns the new arm.
func UpdateArm(arm domain.Arm, normalizedReward float64, weight int64) (domain.Arm, error) {
	if err := validateObservation(normalizedReward, weight); err != nil {
		return arm, err
	}
	if weight > math.MaxInt64-arm.Impressions {
		return arm, fmt.Errorf("%w: weight %d overflows %d impressions", domain.ErrInvalidReward, weight, arm.Impressions)
	}

	w := float64(weight)
	arm.Alpha += w * normalizedReward
	arm.Beta += w * (1 - normalizedReward)
	arm.Impressions += weight
	arm.TotalReward += w * normalizedReward

	return arm, nil
}

func validateObservation(normalizedReward float64, weight int64) error {
	if math.IsNaN(normalizedReward) || normalizedReward < 0 || normalizedReward > 1 {
		return fmt.Errorf("%w: normalized reward %v outside [0,1]", domain.ErrInvalidReward, normalizedReward)
	}
	if weight < 0 {
		return fmt.Errorf("%w: weight %d is negative", domain.ErrInvalidReward, weight)
	}
	return nil
}

// Summarize converts an arm into its reporting view.
func Summarize(arm domain.Arm) domain.ArmSummary {
	return domain.ArmSummary{
		ProductID:      arm.ProductID,
		Impressions:    arm.Impressions,
		TotalReward:    arm.TotalReward,
		ExpectedReward: ExpectedReward(arm),
		Alpha:          arm.Alpha,
		Beta:           arm.Beta,
		UpdatedAt:      arm.UpdatedAt,
	}
}
