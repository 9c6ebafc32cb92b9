package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"skincareReco/business/bandit"
	"skincareReco/domain"

	"github.com/redis/go-redis/v9"
)

const (
	// sorted set of every known product id, scored by the id itself
	armIndexKey = "bandit:arms"

	maxTxRetries = 32
)

// ArmStore keeps each arm in a hash at "bandit:arm:{id}". Updates use
// WATCH/MULTI, so a concurrent writer of the same arm forces a retry.
type ArmStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ bandit.ArmStore = (*ArmStore)(nil)

func NewArmStore(client *redis.Client) *ArmStore {
	return &ArmStore{client: client, now: time.Now}
}

func armKey(productID uint64) string {
	return fmt.Sprintf("bandit:arm:%d", productID)
}

func (s *ArmStore) GetOrCreate(ctx context.Context, productID uint64) (domain.Arm, error) {
	if err := bandit.ValidateProductID(productID); err != nil {
		return domain.Arm{}, err
	}

	var arm domain.Arm
	err := s.watch(ctx, "get or create arm", productID, func(tx *redis.Tx) error {
		current, found, err := readArm(ctx, tx, productID)
		if err != nil {
			return err
		}
		if found {
			arm = current
			return nil
		}

		prior := domain.NewArm(productID)
		prior.UpdatedAt = s.now()
		if err := writeArm(ctx, tx, prior); err != nil {
			return err
		}
		arm = prior
		return nil
	})
	return arm, err
}

func (s *ArmStore) ApplyUpdate(ctx context.Context, productID uint64, normalizedReward float64, weight int64) (domain.Arm, error) {
	if err := bandit.ValidateUpdate(productID, normalizedReward, weight); err != nil {
		return domain.Arm{}, err
	}

	var arm domain.Arm
	err := s.watch(ctx, "apply update", productID, func(tx *redis.Tx) error {
		current, found, err := readArm(ctx, tx, productID)
		if err != nil {
			return err
		}
		if !found {
			current = domain.NewArm(productID)
		}

		next, err := bandit.UpdateArm(current, normalizedReward, weight)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now()

		if err := writeArm(ctx, tx, next); err != nil {
			return err
		}
		arm = next
		return nil
	})
	return arm, err
}

func (s *ArmStore) ListArms(ctx context.Context, productIDs []uint64) (map[uint64]domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

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

	out, err := s.fetch(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range productIDs {
		if _, ok := out[id]; ok {
			continue
		}
		arm, err := s.GetOrCreate(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = arm
	}
	return out, nil
}

func (s *ArmStore) AllStatistics(ctx context.Context) ([]domain.Arm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	members, err := s.client.ZRange(ctx, armIndexKey, 0, -1).Result()
	if err != nil {
		return nil, bandit.StorageError("read arm index", err)
	}

	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, bandit.StorageError("read arm index", fmt.Errorf("bad member %q: %w", m, err))
		}
		ids = append(ids, id)
	}

	byID, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	arms := make([]domain.Arm, 0, len(ids))
	for _, id := range ids {
		if arm, ok := byID[id]; ok {
			arms = append(arms, arm)
		}
	}
	return arms, nil
}

// fetch reads the given arms in one pipeline; missing arms are absent from the result.
func (s *ArmStore) fetch(ctx context.Context, ids []uint64) (map[uint64]domain.Arm, error) {
	out := make(map[uint64]domain.Arm, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, armKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, bandit.StorageError("read arms", err)
	}

	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		arm, err := decodeArm(id, fields)
		if err != nil {
			return nil, bandit.StorageError("read arms", err)
		}
		out[id] = arm
	}
	return out, nil
}

// watch runs fn under WATCH on the arm key and retries when another client
// modified the key before EXEC.
func (s *ArmStore) watch(ctx context.Context, op string, productID uint64, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context error: %w", err)
		}

		err := s.client.Watch(ctx, fn, armKey(productID))
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrInvalidReward) || errors.Is(err, domain.ErrInvalidProductID) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("context error: %w", err)
		}
		return bandit.StorageError(op, err)
	}
	return bandit.StorageError(op, fmt.Errorf("arm %d: too many concurrent writers", productID))
}

func readArm(ctx context.Context, tx *redis.Tx, productID uint64) (domain.Arm, bool, error) {
	fields, err := tx.HGetAll(ctx, armKey(productID)).Result()
	if err != nil {
		return domain.Arm{}, false, err
	}
	if len(fields) == 0 {
		return domain.Arm{}, false, nil
	}
	arm, err := decodeArm(productID, fields)
	if err != nil {
		return domain.Arm{}, false, err
	}
	return arm, true, nil
}

func writeArm(ctx context.Context, tx *redis.Tx, arm domain.Arm) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, armKey(arm.ProductID),
			"alpha", strconv.FormatFloat(arm.Alpha, 'g', -1, 64),
			"beta", strconv.FormatFloat(arm.Beta, 'g', -1, 64),
			"impressions", strconv.FormatInt(arm.Impressions, 10),
			"total_reward", strconv.FormatFloat(arm.TotalReward, 'g', -1, 64),
			"updated_at", arm.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ZAdd(ctx, armIndexKey, redis.Z{
			Score:  float64(arm.ProductID),
			Member: strconv.FormatUint(arm.ProductID, 10),
		})
		return nil
	})
	return err
}

func decodeArm(productID uint64, fields map[string]string) (domain.Arm, error) {
	arm := domain.Arm{ProductID: productID}

	var err error
	if arm.Alpha, err = strconv.ParseFloat(fields["alpha"], 64); err != nil {
		return domain.Arm{}, fmt.Errorf("decode arm %d alpha: %w", productID, err)
	}
	if arm.Beta, err = strconv.ParseFloat(fields["beta"], 64); err != nil {
		return domain.Arm{}, fmt.Errorf("decode arm %d beta: %w", productID, err)
	}
	if arm.Impressions, err = strconv.ParseInt(fields["impressions"], 10, 64); err != nil {
		return domain.Arm{}, fmt.Errorf("decode arm %d impressions: %w", productID, err)
	}
	if arm.TotalReward, err = strconv.ParseFloat(fields["total_reward"], 64); err != nil {
		return domain.Arm{}, fmt.Errorf("decode arm %d total_reward: %w", productID, err)
	}
	if ts := fields["updated_at"]; ts != "" {
		if arm.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return domain.Arm{}, fmt.Errorf("decode arm %d updated_at: %w", productID, err)
		}
	}
	return arm, nil
}
