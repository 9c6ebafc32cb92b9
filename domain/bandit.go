package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CREATE TABLE public.bandit_arms (
//     product_id    BIGINT PRIMARY KEY,
//     alpha         DOUBLE PRECISION NOT NULL DEFAULT 1,
//     beta          DOUBLE PRECISION NOT NULL DEFAULT 1,
//     impressions   BIGINT NOT NULL DEFAULT 0,
//     total_reward  DOUBLE PRECISION NOT NULL DEFAULT 0,
//     updated_at    TIMESTAMPTZ DEFAULT NOW()
// );

// Arm is the Beta posterior of a single product.
type Arm struct {
	ProductID   uint64    `gorm:"column:product_id;primaryKey;autoIncrement:false" json:"product_id"`
	Alpha       float64   `gorm:"column:alpha;not null;default:1" json:"alpha"`
	Beta        float64   `gorm:"column:beta;not null;default:1" json:"beta"`
	Impressions int64     `gorm:"column:impressions;not null;default:0" json:"impressions"`
	TotalReward float64   `gorm:"column:total_reward;not null;default:0" json:"total_reward"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Arm) TableName() string {
	return "bandit_arms"
}

// NewArm returns the uniform prior for a product that has never been seen.
func NewArm(productID uint64) Arm {
	return Arm{
		ProductID: productID,
		Alpha:     1.0,
		Beta:      1.0,
	}
}

type Action string

const (
	ActionView      Action = "view"
	ActionClick     Action = "click"
	ActionAddToCart Action = "add_to_cart"
)

// InteractionEvent is a raw user action against a product.
type InteractionEvent struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	UserID           uint              `gorm:"column:user_id;index" json:"user_id"`
	ProductID        uint64            `gorm:"column:product_id;not null;index" json:"product_id"`
	Action           string            `gorm:"column:action;not null" json:"action"`
	Reward           *float64          `gorm:"column:reward" json:"reward,omitempty"`
	NormalizedReward float64           `gorm:"column:normalized_reward" json:"normalized_reward"`
	ImpressionCount  *int64            `gorm:"column:weight" json:"impression_count,omitempty"`
	Context          datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	OccurredAt       time.Time         `gorm:"column:occurred_at" json:"occurred_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (InteractionEvent) TableName() string {
	return "interaction_events"
}

// Candidate is a product offered to the ranker by the catalog.
type Candidate struct {
	ProductID uint64 `json:"product_id"`
	Category  string `json:"category"`
}

type RankedProduct struct {
	ProductID      uint64  `json:"product_id"`
	Category       string  `json:"category"`
	Score          float64 `json:"thompson_sample"`
	Impressions    int64   `json:"impressions"`
	ExpectedReward float64 `json:"expected_reward"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
}

type ArmSummary struct {
	ProductID      uint64    `json:"product_id"`
	Impressions    int64     `json:"impressions"`
	TotalReward    float64   `json:"total_reward"`
	ExpectedReward float64   `json:"expected_reward"`
	Alpha          float64   `json:"alpha"`
	Beta           float64   `json:"beta"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

type StatisticsSummary struct {
	TotalArms          int     `json:"total_arms"`
	TotalImpressions   int64   `json:"total_impressions"`
	TotalReward        float64 `json:"total_reward"`
	MeanExpectedReward float64 `json:"mean_expected_reward"`
	AverageAlpha       float64 `json:"average_alpha"`
	AverageBeta        float64 `json:"average_beta"`
	AverageRewardRate  float64 `json:"average_reward_rate"`
}

type BanditStatistics struct {
	Arms    []ArmSummary      `json:"arms"`
	Summary StatisticsSummary `json:"summary"`
}

// ActionStat sums the raw, pre-normalization reward of one action.
type ActionStat struct {
	Action      string  `json:"action"`
	Count       int64   `json:"count"`
	TotalReward float64 `json:"total_reward"`
}

type ProductInteractions struct {
	ProductID    uint64             `json:"product_id"`
	Interactions []InteractionEvent `json:"interactions"`
	Total        int64              `json:"total"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
	Statistics   []ActionStat       `json:"statistics"`
}

type UserInteractions struct {
	UserID       uint               `json:"user_id"`
	Interactions []InteractionEvent `json:"interactions"`
	Total        int64              `json:"total"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
}
