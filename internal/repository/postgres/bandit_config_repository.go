package postgres

import (
	"context"
	"errors"
	"fmt"

	"skincareReco/business/bandit"
	"skincareReco/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BanditConfigRepository struct {
	DB *gorm.DB
}

var _ bandit.PolicyRepository = (*BanditConfigRepository)(nil)

func NewBanditConfigRepository(db *gorm.DB) *BanditConfigRepository {
	return &BanditConfigRepository{DB: db}
}

func (r *BanditConfigRepository) GetRewardPolicy(ctx context.Context, name string) (domain.BanditConfig, bool, error) {
	var cfg domain.BanditConfig

	err := r.DB.WithContext(ctx).
		Where("name = ?", name).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BanditConfig{}, false, nil
	}
	if err != nil {
		return domain.BanditConfig{}, false, fmt.Errorf("failed to query bandit_reward_policy: %w", err)
	}

	return cfg, true, nil
}

func (r *BanditConfigRepository) UpsertRewardPolicy(ctx context.Context, cfg domain.BanditConfig) error {
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"reward_view",
				"reward_click",
				"reward_add_to_cart",
				"max_observed_reward",
				"updated_at",
			}),
		}).
		Create(&cfg).Error
	if err != nil {
		return bandit.StorageError("failed to upsert bandit_reward_policy", err)
	}
	return nil
}
