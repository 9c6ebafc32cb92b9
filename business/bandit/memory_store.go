package bandit

import (
	"context"
	"sort"
	"sync"
	"time"

	"skincareReco/domain"
)

type armEntry struct {
	mu  sync.RWMutex
	arm domain.Arm
}

func (e *armEntry) snapshot() domain.Arm {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.arm
}

// MemoryStore keeps arms in process. Each product has its own lock, so
// updates of different products never wait on each other.
type MemoryStore struct {
	arms sync.Map // uint64 -> *armEntry
	now  func() time.Time
}

var _ ArmStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// entry returns the entry for productID, inserting the prior atomically.
func (s *MemoryStore) entry(productID uint64) *armEntry {
	if e, ok := s.arms.Load(productID); ok {
		return e.(*armEntry)
	}

	fresh := &armEntry{arm: domain.NewArm(productID)}
	fresh.arm.UpdatedAt = s.now()

	e, _ := s.arms.LoadOrStore(productID, fresh)
	return e.(*armEntry)
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, productID uint64) (domain.Arm, error) {
	if err := contextError(ctx); err != nil {
		return domain.Arm{}, err
	}
	if err := ValidateProductID(productID); err != nil {
		return domain.Arm{}, err
	}

	return s.entry(productID).snapshot(), nil
}

func (s *MemoryStore) ApplyUpdate(ctx context.Context, productID uint64, normalizedReward float64, weight int64) (domain.Arm, error) {
	if err := contextError(ctx); err != nil {
		return domain.Arm{}, err
	}
	if err := ValidateUpdate(productID, normalizedReward, weight); err != nil {
		return domain.Arm{}, err
	}

	e := s.entry(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	updated, err := UpdateArm(e.arm, normalizedReward, weight)
	if err != nil {
		return domain.Arm{}, err
	}
	updated.UpdatedAt = s.now()
	e.arm = updated

	return updated, nil
}

func (s *MemoryStore) ListArms(ctx context.Context, productIDs []uint64) (map[uint64]domain.Arm, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}

	if productIDs == nil {
		out := make(map[uint64]domain.Arm)
		s.arms.Range(func(key, value any) bool {
			out[key.(uint64)] = value.(*armEntry).snapshot()
			return true
		})
		return out, nil
	}

	for _, id := range productIDs {
		if err := ValidateProductID(id); err != nil {
			return nil, err
		}
	}

	out := make(map[uint64]domain.Arm, len(productIDs))
	for _, id := range productIDs {
		out[id] = s.entry(id).snapshot()
	}
	return out, nil
}

func (s *MemoryStore) AllStatistics(ctx context.Context) ([]domain.Arm, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}

	arms := make([]domain.Arm, 0)
	s.arms.Range(func(_, value any) bool {
		arms = append(arms, value.(*armEntry).snapshot())
		return true
	})

	sort.Slice(arms, func(i, j int) bool {
		return arms[i].ProductID < arms[j].ProductID
	})
	return arms, nil
}
