package domain

import "time"

// CREATE TABLE public.bandit_reward_policy (
//     name                 TEXT PRIMARY KEY,
//     reward_view          DOUBLE PRECISION NOT NULL,
//     reward_click         DOUBLE PRECISION NOT NULL,
//     reward_add_to_cart   DOUBLE PRECISION NOT NULL,
//     max_observed_reward  DOUBLE PRECISION NOT NULL,
//     updated_at           TIMESTAMPTZ DEFAULT NOW()
// );

// BanditConfig is the persisted reward policy editable by admins.
type BanditConfig struct {
	Name string `json:"name" gorm:"column:name;primaryKey"`

	RewardView      float64 `json:"reward_view" gorm:"column:reward_view" validate:"gte=0"`
	RewardClick     float64 `json:"reward_click" gorm:"column:reward_click" validate:"gte=0"`
	RewardAddToCart float64 `json:"reward_add_to_cart" gorm:"column:reward_add_to_cart" validate:"gte=0"`

	// ceiling used to normalize raw rewards into [0,1]
	MaxObservedReward float64 `json:"max_observed_reward" gorm:"column:max_observed_reward" validate:"gt=0"`

	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (BanditConfig) TableName() string {
	return "bandit_reward_policy"
}
