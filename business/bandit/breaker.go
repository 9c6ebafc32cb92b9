package bandit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skincareReco/domain"
	"skincareReco/pkg/logger"

	gobreaker "github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerStore fails fast with domain.ErrStorageUnavailable while the
// underlying store keeps failing. Only storage failures trip the breaker.
type BreakerStore struct {
	next ArmStore
	cb   *gobreaker.CircuitBreaker[any]
}

var _ ArmStore = (*BreakerStore)(nil)

func NewBreakerStore(next ArmStore, cfg BreakerConfig) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrStorageUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("bandit_store_breaker", "name", name, "from", from.String(), "to", to.String())
			BanditStoreBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) execute(fn func() (any, error)) (any, error) {
	res, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return res, err
}

func (s *BreakerStore) GetOrCreate(ctx context.Context, productID uint64) (domain.Arm, error) {
	res, err := s.execute(func() (any, error) {
		return s.next.GetOrCreate(ctx, productID)
	})
	if err != nil {
		return domain.Arm{}, err
	}
	return res.(domain.Arm), nil
}

func (s *BreakerStore) ApplyUpdate(ctx context.Context, productID uint64, normalizedReward float64, weight int64) (domain.Arm, error) {
	res, err := s.execute(func() (any, error) {
		return s.next.ApplyUpdate(ctx, productID, normalizedReward, weight)
	})
	if err != nil {
		return domain.Arm{}, err
	}
	return res.(domain.Arm), nil
}

func (s *BreakerStore) ListArms(ctx context.Context, productIDs []uint64) (map[uint64]domain.Arm, error) {
	res, err := s.execute(func() (any, error) {
		return s.next.ListArms(ctx, productIDs)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[uint64]domain.Arm), nil
}

func (s *BreakerStore) AllStatistics(ctx context.Context) ([]domain.Arm, error) {
	res, err := s.execute(func() (any, error) {
		return s.next.AllStatistics(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Arm), nil
}
