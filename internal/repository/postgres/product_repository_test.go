//go:build integration

package postgres

import (
	"context"
	"testing"

	"skincareReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_FindCandidates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.Exec("TRUNCATE products RESTART IDENTITY").Error)

	products := []domain.Product{
		{Name: "Gentle Cleanser", Category: "cleanser"},
		{Name: "Niacinamide Serum", Category: "serum"},
		{Name: "Foam Cleanser", Category: "cleanser"},
	}
	require.NoError(t, db.Create(&products).Error)

	repo := NewProductRepository(db)

	all, err := repo.FindCandidates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cleansers, err := repo.FindCandidates(ctx, "cleanser")
	require.NoError(t, err)
	require.Len(t, cleansers, 2)
	assert.Equal(t, products[0].ID, cleansers[0].ProductID)
	assert.Equal(t, "cleanser", cleansers[1].Category)
}
