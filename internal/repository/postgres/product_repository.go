package postgres

import (
	"context"
	"fmt"

	"skincareReco/domain"

	"gorm.io/gorm"
)

// ProductRepository reads the catalog. Products are written by the catalog
// owner; this service only needs ids and categories.
type ProductRepository struct {
	DB *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{
		DB: db,
	}
}

// FindCandidates lists the catalog as ranking candidates, optionally
// restricted to one category.
func (r *ProductRepository) FindCandidates(ctx context.Context, category string) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).Model(&domain.Product{}).Select("id AS product_id, category")
	if category != "" {
		q = q.Where("category = ?", category)
	}

	candidates := make([]domain.Candidate, 0)
	if err := q.Order("id ASC").Scan(&candidates).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list candidates: %v", domain.ErrCatalogUnavailable, err)
	}

	return candidates, nil
}
