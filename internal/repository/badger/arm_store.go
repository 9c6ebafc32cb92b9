// Package badger stores bandit arms in an embedded BadgerDB.
//
// Keys are "arm:" followed by the zero-padded product id, so a prefix scan
// returns arms in ascending product id order. Values are JSON-encoded arms.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skincareReco/business/bandit"
	"skincareReco/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	armKeyPrefix = "arm:"

	// serializable conflicts are retried this many times before the
	// update is reported as storage unavailable
	maxConflictRetries = 64
)

// ArmStore implements bandit.ArmStore on BadgerDB. Read-modify-write runs in
// a serializable transaction, so two writers of the same key never both commit.
type ArmStore struct {
	db  *badger.DB
	now func() time.Time
}

var _ bandit.ArmStore = (*ArmStore)(nil)

func NewArmStore(db *badger.DB) *ArmStore {
	return &ArmStore{db: db, now: time.Now}
}

func armKey(productID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", armKeyPrefix, productID))
}

func (s *ArmStore) GetOrCreate(ctx context.Context, productID uint64) (domain.Arm, error) {
	if err := bandit.ValidateProductID(productID); err != nil {
		return domain.Arm{}, err
	}

	var arm domain.Arm
	err := s.update(ctx, "get or create arm", func(txn *badger.Txn) error {
		var err error
		arm, err = s.getOrPrior(txn, productID, true)
		return err
	})
	return arm, err
}

func (s *ArmStore) ApplyUpdate(ctx context.Context, productID uint64, normalizedReward float64, weight int64) (domain.Arm, error) {
	if err := bandit.ValidateUpdate(productID, normalizedReward, weight); err != nil {
		return domain.Arm{}, err
	}

	var arm domain.Arm
	err := s.update(ctx, "apply update", func(txn *badger.Txn) error {
		current, err := s.getOrPrior(txn, productID, false)
		if err != nil {
			return err
		}

		next, err := bandit.UpdateArm(current, normalizedReward, weight)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now()

		if err := putArm(txn, next); err != nil {
			return err
		}
		arm = next
		return nil
	})
	return arm, err
}

func (s *ArmStore) ListArms(ctx context.Context, productIDs []uint64) (map[uint64]domain.Arm, error) {
	if productIDs == nil {
		all, err := s.AllStatistics(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[uint64]domain.Arm, len(all))
		for _, arm := range all {
			out[arm.ProductID] = arm
		}
		return out, nil
	}

	for _, id := range productIDs {
		if err := bandit.ValidateProductID(id); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	// existing arms are read without a write transaction, so ranking never
	// conflicts with concurrent updates
	out := make(map[uint64]domain.Arm, len(productIDs))
	var missing []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range productIDs {
			if _, ok := out[id]; ok {
				continue
			}
			arm, found, err := readArm(txn, id)
			if err != nil {
				return err
			}
			if !found {
				missing = append(missing, id)
				continue
			}
			out[id] = arm
		}
		return nil
	})
	if err != nil {
		return nil, bandit.StorageError("list arms", err)
	}
	if len(missing) == 0 {
		return out, nil
	}

	created := make(map[uint64]domain.Arm, len(missing))
	err = s.update(ctx, "create prior arms", func(txn *badger.Txn) error {
		clear(created)
		for _, id := range missing {
			if _, ok := created[id]; ok {
				continue
			}
			arm, err := s.getOrPrior(txn, id, true)
			if err != nil {
				return err
			}
			created[id] = arm
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for id, arm := range created {
		out[id] = arm
	}
	return out, nil
}

func (s *ArmStore) AllStatistics(ctx context.Context) ([]domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	arms := make([]domain.Arm, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(armKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var arm domain.Arm
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &arm)
			}); err != nil {
				return fmt.Errorf("decode arm %s: %w", it.Item().Key(), err)
			}
			arms = append(arms, arm)
		}
		return nil
	})
	if err != nil {
		return nil, bandit.StorageError("scan arms", err)
	}
	return arms, nil
}

// update runs fn in a read-write transaction, retrying on write conflicts.
// Errors returned by fn that are not badger errors are passed through as-is.
func (s *ArmStore) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context error: %w", err)
		}

		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			if errors.Is(err, domain.ErrInvalidReward) || errors.Is(err, domain.ErrInvalidProductID) {
				return err
			}
			return bandit.StorageError(op, err)
		}
		lastErr = err
	}
	return bandit.StorageError(op, fmt.Errorf("gave up after %d conflicts: %w", maxConflictRetries, lastErr))
}

// getOrPrior reads the arm, falling back to the prior. When persist is set a
// missing arm is written inside the same transaction.
func (s *ArmStore) getOrPrior(txn *badger.Txn, productID uint64, persist bool) (domain.Arm, error) {
	arm, found, err := readArm(txn, productID)
	if err != nil || found {
		return arm, err
	}

	arm = domain.NewArm(productID)
	arm.UpdatedAt = s.now()
	if persist {
		if err := putArm(txn, arm); err != nil {
			return domain.Arm{}, err
		}
	}
	return arm, nil
}

func readArm(txn *badger.Txn, productID uint64) (domain.Arm, bool, error) {
	item, err := txn.Get(armKey(productID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Arm{}, false, nil
	}
	if err != nil {
		return domain.Arm{}, false, fmt.Errorf("get arm %d: %w", productID, err)
	}

	var arm domain.Arm
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &arm)
	}); err != nil {
		return domain.Arm{}, false, fmt.Errorf("decode arm %d: %w", productID, err)
	}
	return arm, true, nil
}

func putArm(txn *badger.Txn, arm domain.Arm) error {
	data, err := json.Marshal(arm)
	if err != nil {
		return fmt.Errorf("marshal arm: %w", err)
	}
	if err := txn.Set(armKey(arm.ProductID), data); err != nil {
		return fmt.Errorf("set arm %d: %w", arm.ProductID, err)
	}
	return nil
}
