package bandit

import (
	"context"
	"fmt"

	"skincareReco/domain"
)

// ArmStore is the authoritative repository of arm state.
//
// ApplyUpdate is atomic per product id: concurrent updates of the same id are
// serialized and updates of different ids do not block each other. Reads
// return a consistent copy of each arm. Storage failures are reported as
// domain.ErrStorageUnavailable and are never retried by the store.
type ArmStore interface {
	GetOrCreate(ctx context.Context, productID uint64) (domain.Arm, error)
	ApplyUpdate(ctx context.Context, productID uint64, normalizedReward float64, weight int64) (domain.Arm, error)
	// ListArms returns all arms when productIDs is nil, otherwise exactly the
	// requested ids, creating the missing ones with the prior.
	ListArms(ctx context.Context, productIDs []uint64) (map[uint64]domain.Arm, error)
	// AllStatistics returns every arm ordered by ascending product id.
	AllStatistics(ctx context.Context) ([]domain.Arm, error)
}

func ValidateProductID(productID uint64) error {
	if productID == 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidProductID, productID)
	}
	return nil
}

// ValidateUpdate checks an update request without touching any storage.
func ValidateUpdate(productID uint64, normalizedReward float64, weight int64) error {
	if err := ValidateProductID(productID); err != nil {
		return err
	}
	return validateObservation(normalizedReward, weight)
}

// StorageError tags a persistence failure as domain.ErrStorageUnavailable.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}

func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return nil
}
