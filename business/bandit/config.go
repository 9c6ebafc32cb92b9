package bandit

import (
	"context"
	"fmt"

	"skincareReco/domain"
)

type Config struct {
	Policy RewardPolicy

	// used when a request asks for n <= 0 at the HTTP layer
	DefaultK int

	// arms are loaded in chunks of RankChunkSize with at most
	// RankConcurrency chunks in flight per ranking request
	RankChunkSize   int
	RankConcurrency int
}

const (
	defaultRewardView        = 0.0
	defaultRewardClick       = 1.0
	defaultRewardAddToCart   = 2.0
	defaultMaxObservedReward = 2.0
	defaultK                 = 5
	defaultRankChunkSize     = 256
	defaultRankConcurrency   = 4

	// DefaultPolicyName keys the reward policy row in storage.
	DefaultPolicyName = "default"
)

func DefaultConfig() Config {
	return Config{
		Policy:          DefaultRewardPolicy(),
		DefaultK:        defaultK,
		RankChunkSize:   defaultRankChunkSize,
		RankConcurrency: defaultRankConcurrency,
	}
}

func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		View:              defaultRewardView,
		Click:             defaultRewardClick,
		AddToCart:         defaultRewardAddToCart,
		MaxObservedReward: defaultMaxObservedReward,
	}
}

// Validate fills zero sizing fields with defaults and rejects a bad policy.
func (c *Config) Validate() error {
	c.applyDefaults()
	return c.Policy.Validate()
}

func (c *Config) applyDefaults() {
	if c.DefaultK <= 0 {
		c.DefaultK = defaultK
	}
	if c.RankChunkSize <= 0 {
		c.RankChunkSize = defaultRankChunkSize
	}
	if c.RankConcurrency <= 0 {
		c.RankConcurrency = defaultRankConcurrency
	}
}

// PolicyRepository persists the admin-editable reward policy.
type PolicyRepository interface {
	GetRewardPolicy(ctx context.Context, name string) (domain.BanditConfig, bool, error)
	UpsertRewardPolicy(ctx context.Context, cfg domain.BanditConfig) error
}

func PolicyFromConfig(cfg domain.BanditConfig) RewardPolicy {
	return RewardPolicy{
		View:              cfg.RewardView,
		Click:             cfg.RewardClick,
		AddToCart:         cfg.RewardAddToCart,
		MaxObservedReward: cfg.MaxObservedReward,
	}
}

func (p RewardPolicy) ToConfig(name string) domain.BanditConfig {
	return domain.BanditConfig{
		Name:              name,
		RewardView:        p.View,
		RewardClick:       p.Click,
		RewardAddToCart:   p.AddToCart,
		MaxObservedReward: p.MaxObservedReward,
	}
}

func (p RewardPolicy) Validate() error {
	if !(p.MaxObservedReward > 0) {
		return fmt.Errorf("max observed reward must be greater than 0, got %v", p.MaxObservedReward)
	}
	if p.View < 0 || p.Click < 0 || p.AddToCart < 0 {
		return fmt.Errorf("action rewards cannot be negative")
	}
	return nil
}
