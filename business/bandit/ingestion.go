package bandit

import (
	"context"
	"fmt"
	"math"
	"strings"

	"skincareReco/domain"
)

// RewardPolicy maps actions to raw rewards and normalizes them into [0,1].
// MaxObservedReward is the ceiling: raise it when a stronger signal is added.
type RewardPolicy struct {
	View              float64
	Click             float64
	AddToCart         float64
	MaxObservedReward float64
}

// Observation is a validated, normalized update ready for ArmStore.ApplyUpdate.
type Observation struct {
	ProductID        uint64
	RawReward        float64
	NormalizedReward float64
	Weight           int64
}

func ParseAction(raw string) (domain.Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(domain.ActionView), "impression":
		return domain.ActionView, nil
	case string(domain.ActionClick):
		return domain.ActionClick, nil
	case string(domain.ActionAddToCart):
		return domain.ActionAddToCart, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownAction, raw)
	}
}

// RawReward looks the action up in the table unless override is set.
func (p RewardPolicy) RawReward(action string, override *float64) (float64, error) {
	a, err := ParseAction(action)
	if err != nil {
		return 0, err
	}

	if override != nil {
		if math.IsNaN(*override) || *override < 0 {
			return 0, fmt.Errorf("%w: reward override %v is negative", domain.ErrInvalidReward, *override)
		}
		return *override, nil
	}

	switch a {
	case domain.ActionClick:
		return p.Click, nil
	case domain.ActionAddToCart:
		return p.AddToCart, nil
	default:
		return p.View, nil
	}
}

// Normalize divides by the ceiling and clamps into [0,1].
func (p RewardPolicy) Normalize(raw float64) (float64, error) {
	if math.IsNaN(raw) || raw < 0 {
		return 0, fmt.Errorf("%w: raw reward %v", domain.ErrInvalidReward, raw)
	}
	if !(p.MaxObservedReward > 0) {
		return 0, fmt.Errorf("%w: max observed reward %v", domain.ErrInvalidReward, p.MaxObservedReward)
	}

	n := raw / p.MaxObservedReward
	if n > 1 {
		n = 1
	}
	return n, nil
}

func weightFor(impressionCount *int64) (int64, error) {
	if impressionCount == nil {
		return 1, nil
	}
	if *impressionCount < 0 {
		return 0, fmt.Errorf("%w: impression count %d is negative", domain.ErrInvalidReward, *impressionCount)
	}
	return *impressionCount, nil
}

// ObserveEvent validates an interaction event and turns it into an observation.
func (p RewardPolicy) ObserveEvent(ev domain.InteractionEvent) (Observation, error) {
	if err := ValidateProductID(ev.ProductID); err != nil {
		return Observation{}, err
	}

	raw, err := p.RawReward(ev.Action, ev.Reward)
	if err != nil {
		return Observation{}, err
	}

	return p.observe(ev.ProductID, raw, ev.ImpressionCount)
}

// ObserveReward is the direct update path where the caller already knows the raw reward.
func (p RewardPolicy) ObserveReward(productID uint64, reward float64, impressionCount *int64) (Observation, error) {
	if err := ValidateProductID(productID); err != nil {
		return Observation{}, err
	}
	return p.observe(productID, reward, impressionCount)
}

func (p RewardPolicy) observe(productID uint64, raw float64, impressionCount *int64) (Observation, error) {
	normalized, err := p.Normalize(raw)
	if err != nil {
		return Observation{}, err
	}

	weight, err := weightFor(impressionCount)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		ProductID:        productID,
		RawReward:        raw,
		NormalizedReward: normalized,
		Weight:           weight,
	}, nil
}

// Ingestor applies observations to the store. It never retries: a failed
// ApplyUpdate means the observation was not applied.
type Ingestor struct {
	store ArmStore
}

func NewIngestor(store ArmStore) *Ingestor {
	return &Ingestor{store: store}
}

func (in *Ingestor) RecordInteraction(ctx context.Context, policy RewardPolicy, ev domain.InteractionEvent) (domain.Arm, Observation, error) {
	obs, err := policy.ObserveEvent(ev)
	if err != nil {
		return domain.Arm{}, Observation{}, err
	}

	arm, err := in.apply(ctx, obs)
	return arm, obs, err
}

func (in *Ingestor) UpdateBandit(ctx context.Context, policy RewardPolicy, productID uint64, reward float64, impressionCount *int64) (domain.Arm, Observation, error) {
	obs, err := policy.ObserveReward(productID, reward, impressionCount)
	if err != nil {
		return domain.Arm{}, Observation{}, err
	}

	arm, err := in.apply(ctx, obs)
	return arm, obs, err
}

func (in *Ingestor) apply(ctx context.Context, obs Observation) (domain.Arm, error) {
	arm, err := in.store.ApplyUpdate(ctx, obs.ProductID, obs.NormalizedReward, obs.Weight)
	if err != nil {
		return domain.Arm{}, fmt.Errorf("apply update for product %d: %w", obs.ProductID, err)
	}
	return arm, nil
}
