package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"skincareReco/business/bandit"
	"skincareReco/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArmRepository is the relational ArmStore. Every update is a single
// INSERT ... ON CONFLICT DO UPDATE, so the row lock postgres takes on
// conflict serializes writers of the same product.
type ArmRepository struct {
	DB  *gorm.DB
	now func() time.Time
}

var _ bandit.ArmStore = (*ArmRepository)(nil)

func NewArmRepository(db *gorm.DB) *ArmRepository {
	return &ArmRepository{DB: db, now: time.Now}
}

func (r *ArmRepository) GetOrCreate(ctx context.Context, productID uint64) (domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return domain.Arm{}, fmt.Errorf("context error: %w", err)
	}
	if err := bandit.ValidateProductID(productID); err != nil {
		return domain.Arm{}, err
	}

	if err := r.insertPriors(ctx, []uint64{productID}); err != nil {
		return domain.Arm{}, err
	}

	var arm domain.Arm
	if err := r.DB.WithContext(ctx).First(&arm, "product_id = ?", productID).Error; err != nil {
		return domain.Arm{}, bandit.StorageError("failed to query bandit_arms", err)
	}
	return arm, nil
}

func (r *ArmRepository) ApplyUpdate(ctx context.Context, productID uint64, normalizedReward float64, weight int64) (domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return domain.Arm{}, fmt.Errorf("context error: %w", err)
	}
	if err := bandit.ValidateUpdate(productID, normalizedReward, weight); err != nil {
		return domain.Arm{}, err
	}

	w := float64(weight)
	success := w * normalizedReward
	failure := w * (1 - normalizedReward)
	now := r.now()

	// the inserted row is the prior with this observation already applied
	arm := domain.Arm{
		ProductID:   productID,
		Alpha:       1 + success,
		Beta:        1 + failure,
		Impressions: weight,
		TotalReward: success,
		UpdatedAt:   now,
	}

	// the conflict update is skipped when impressions would overflow BIGINT
	result := r.DB.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "product_id"}},
				Where: clause.Where{Exprs: []clause.Expression{
					gorm.Expr("bandit_arms.impressions <= ?", int64(math.MaxInt64)-weight),
				}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"alpha":        gorm.Expr("bandit_arms.alpha + ?", success),
					"beta":         gorm.Expr("bandit_arms.beta + ?", failure),
					"impressions":  gorm.Expr("bandit_arms.impressions + ?", weight),
					"total_reward": gorm.Expr("bandit_arms.total_reward + ?", success),
					"updated_at":   now,
				}),
			},
			clause.Returning{},
		).
		Create(&arm)
	if result.Error != nil {
		return domain.Arm{}, bandit.StorageError("failed to upsert bandit_arms", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.Arm{}, fmt.Errorf("%w: weight %d overflows impressions of product %d", domain.ErrInvalidReward, weight, productID)
	}

	return arm, nil
}

func (r *ArmRepository) ListArms(ctx context.Context, productIDs []uint64) (map[uint64]domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var arms []domain.Arm
	if productIDs == nil {
		if err := r.DB.WithContext(ctx).Find(&arms).Error; err != nil {
			return nil, bandit.StorageError("failed to list bandit_arms", err)
		}
	} else {
		for _, id := range productIDs {
			if err := bandit.ValidateProductID(id); err != nil {
				return nil, err
			}
		}
		if len(productIDs) == 0 {
			return map[uint64]domain.Arm{}, nil
		}
		if err := r.insertPriors(ctx, productIDs); err != nil {
			return nil, err
		}
		if err := r.DB.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&arms).Error; err != nil {
			return nil, bandit.StorageError("failed to list bandit_arms", err)
		}
	}

	out := make(map[uint64]domain.Arm, len(arms))
	for _, arm := range arms {
		out[arm.ProductID] = arm
	}
	return out, nil
}

func (r *ArmRepository) AllStatistics(ctx context.Context) ([]domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	arms := make([]domain.Arm, 0)
	if err := r.DB.WithContext(ctx).Order("product_id ASC").Find(&arms).Error; err != nil {
		return nil, bandit.StorageError("failed to list bandit_arms", err)
	}
	return arms, nil
}

// insertPriors creates the missing arms; existing rows are left untouched.
func (r *ArmRepository) insertPriors(ctx context.Context, productIDs []uint64) error {
	now := r.now()
	rows := make([]domain.Arm, 0, len(productIDs))
	seen := make(map[uint64]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		arm := domain.NewArm(id)
		arm.UpdatedAt = now
		rows = append(rows, arm)
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&rows, 500).Error
	if err != nil {
		return bandit.StorageError("failed to insert bandit_arms", err)
	}
	return nil
}

// InteractionRepository is the append-only interaction log.
type InteractionRepository struct {
	DB *gorm.DB
}

var _ bandit.EventRepository = (*InteractionRepository)(nil)

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{DB: db}
}

func (r *InteractionRepository) SaveInteraction(ctx context.Context, event domain.InteractionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to save interaction event: %w", err)
	}

	return nil
}

func (r *InteractionRepository) ListByProduct(ctx context.Context, productID uint64, limit, offset int) ([]domain.InteractionEvent, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}

	var total int64
	if err := r.DB.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Where("product_id = ?", productID).
		Count(&total).Error; err != nil {
		return nil, 0, bandit.StorageError("failed to count interaction events", err)
	}

	events := make([]domain.InteractionEvent, 0)
	if err := r.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		return nil, 0, bandit.StorageError("failed to list interaction events", err)
	}

	return events, total, nil
}

func (r *InteractionRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]domain.InteractionEvent, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}

	var total int64
	if err := r.DB.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, bandit.StorageError("failed to count user interaction events", err)
	}

	events := make([]domain.InteractionEvent, 0)
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		return nil, 0, bandit.StorageError("failed to list user interaction events", err)
	}

	return events, total, nil
}

func (r *InteractionRepository) ActionStats(ctx context.Context, productID uint64) ([]domain.ActionStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	stats := make([]domain.ActionStat, 0)
	err := r.DB.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Select("action, COUNT(*) AS count, COALESCE(SUM(reward), 0) AS total_reward").
		Where("product_id = ?", productID).
		Group("action").
		Order("action ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, bandit.StorageError("failed to aggregate interaction events", err)
	}

	return stats, nil
}
