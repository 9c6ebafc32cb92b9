package bandit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"skincareReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	mu      sync.Mutex
	events  []domain.InteractionEvent
	saveErr error
}

func (f *fakeEventRepo) SaveInteraction(_ context.Context, event domain.InteractionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) ListByProduct(_ context.Context, productID uint64, limit, offset int) ([]domain.InteractionEvent, int64, error) {
	return f.page(func(ev domain.InteractionEvent) bool { return ev.ProductID == productID }, limit, offset)
}

func (f *fakeEventRepo) ListByUser(_ context.Context, userID uint, limit, offset int) ([]domain.InteractionEvent, int64, error) {
	return f.page(func(ev domain.InteractionEvent) bool { return ev.UserID == userID }, limit, offset)
}

func (f *fakeEventRepo) page(match func(domain.InteractionEvent) bool, limit, offset int) ([]domain.InteractionEvent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []domain.InteractionEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		if match(f.events[i]) {
			matched = append(matched, f.events[i])
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []domain.InteractionEvent{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeEventRepo) ActionStats(_ context.Context, productID uint64) ([]domain.ActionStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	byAction := map[string]*domain.ActionStat{}
	var order []string
	for _, ev := range f.events {
		if ev.ProductID != productID {
			continue
		}
		st, ok := byAction[ev.Action]
		if !ok {
			st = &domain.ActionStat{Action: ev.Action}
			byAction[ev.Action] = st
			order = append(order, ev.Action)
		}
		st.Count++
		if ev.Reward != nil {
			st.TotalReward += *ev.Reward
		}
	}

	out := make([]domain.ActionStat, 0, len(order))
	for _, a := range order {
		out = append(out, *byAction[a])
	}
	return out, nil
}

type fakePolicyRepo struct {
	cfg    *domain.BanditConfig
	getErr error
}

func (f *fakePolicyRepo) GetRewardPolicy(_ context.Context, _ string) (domain.BanditConfig, bool, error) {
	if f.getErr != nil {
		return domain.BanditConfig{}, false, f.getErr
	}
	if f.cfg == nil {
		return domain.BanditConfig{}, false, nil
	}
	return *f.cfg, true, nil
}

func (f *fakePolicyRepo) UpsertRewardPolicy(_ context.Context, cfg domain.BanditConfig) error {
	f.cfg = &cfg
	return nil
}

func newTestService(events EventRepository, policies PolicyRepository) *BanditService {
	return NewBanditService(NewMemoryStore(), events, policies, DefaultConfig())
}

func TestBanditService_RecordInteractionLogsEvent(t *testing.T) {
	events := &fakeEventRepo{}
	svc := newTestService(events, nil)
	ctx := WithTraceID(context.Background(), "trace-1")

	summary, err := svc.RecordInteraction(ctx, domain.InteractionEvent{
		UserID:    3,
		ProductID: 10,
		Action:    "click",
		Context:   map[string]any{"page": "home"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, summary.Alpha, 1e-12)
	assert.InDelta(t, 0.5, summary.ExpectedReward, 1e-12)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	require.NotNil(t, ev.Reward)
	assert.Equal(t, 1.0, *ev.Reward)
	assert.Equal(t, 0.5, ev.NormalizedReward)
	require.NotNil(t, ev.ImpressionCount)
	assert.Equal(t, int64(1), *ev.ImpressionCount)
	assert.False(t, ev.OccurredAt.IsZero())
	assert.Equal(t, "trace-1", ev.Context["trace_id"])
	assert.Equal(t, "home", ev.Context["page"])
}

func TestBanditService_RejectedInteractionIsNotLogged(t *testing.T) {
	events := &fakeEventRepo{}
	svc := newTestService(events, nil)

	_, err := svc.RecordInteraction(context.Background(), domain.InteractionEvent{ProductID: 10, Action: "wishlist"})
	require.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Empty(t, events.events)

	stats, err := svc.Statistics(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, stats.Arms)
}

func TestBanditService_LogFailureDoesNotFailUpdate(t *testing.T) {
	events := &fakeEventRepo{saveErr: errors.New("disk full")}
	svc := newTestService(events, nil)

	summary, err := svc.RecordInteraction(context.Background(), domain.InteractionEvent{ProductID: 4, Action: "add_to_cart"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Impressions)

	state, err := svc.ProductState(context.Background(), 4)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, state.Alpha, 1e-12)
}

func TestBanditService_UsesStoredRewardPolicy(t *testing.T) {
	policies := &fakePolicyRepo{}
	svc := newTestService(nil, policies)
	ctx := context.Background()

	cfg := svc.RewardPolicy(ctx)
	assert.Equal(t, 2.0, cfg.MaxObservedReward)

	_, err := svc.UpdateRewardPolicy(ctx, domain.BanditConfig{
		RewardView:        0,
		RewardClick:       1,
		RewardAddToCart:   4,
		MaxObservedReward: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicyName, policies.cfg.Name)

	summary, err := svc.RecordInteraction(ctx, domain.InteractionEvent{ProductID: 1, Action: "click"})
	require.NoError(t, err)
	assert.InDelta(t, 1.25, summary.Alpha, 1e-12)
	assert.InDelta(t, 1.75, summary.Beta, 1e-12)
}

func TestBanditService_UpdateRewardPolicyValidates(t *testing.T) {
	svc := newTestService(nil, &fakePolicyRepo{})

	_, err := svc.UpdateRewardPolicy(context.Background(), domain.BanditConfig{MaxObservedReward: 0, RewardClick: 1})
	require.ErrorIs(t, err, domain.ErrInvalidReward)

	noRepo := newTestService(nil, nil)
	_, err = noRepo.UpdateRewardPolicy(context.Background(), DefaultRewardPolicy().ToConfig(DefaultPolicyName))
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestBanditService_PolicyFallbackOnRepoError(t *testing.T) {
	svc := newTestService(nil, &fakePolicyRepo{getErr: errors.New("timeout")})

	summary, err := svc.UpdateBandit(context.Background(), 6, 1.0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, summary.Alpha, 1e-12)
}

func TestBanditService_ProductInteractions(t *testing.T) {
	events := &fakeEventRepo{}
	svc := newTestService(events, nil)
	ctx := context.Background()

	for _, action := range []string{"view", "click", "click", "add_to_cart"} {
		_, err := svc.RecordInteraction(ctx, domain.InteractionEvent{ProductID: 21, Action: action})
		require.NoError(t, err)
	}
	_, err := svc.RecordInteraction(ctx, domain.InteractionEvent{ProductID: 22, Action: "click"})
	require.NoError(t, err)

	page, err := svc.ProductInteractions(ctx, 21, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Interactions, 2)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Statistics, 3)
	assert.Equal(t, "click", page.Statistics[1].Action)
	assert.Equal(t, int64(2), page.Statistics[1].Count)
	assert.InDelta(t, 2.0, page.Statistics[1].TotalReward, 1e-12)
	assert.InDelta(t, 2.0, page.Statistics[2].TotalReward, 1e-12)

	page, err = svc.ProductInteractions(ctx, 21, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, defaultInteractionLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)

	_, err = newTestService(nil, nil).ProductInteractions(ctx, 21, 10, 0)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestBanditService_UserInteractions(t *testing.T) {
	events := &fakeEventRepo{}
	svc := newTestService(events, nil)
	ctx := context.Background()

	for _, productID := range []uint64{31, 32, 33} {
		_, err := svc.RecordInteraction(ctx, domain.InteractionEvent{UserID: 5, ProductID: productID, Action: "click"})
		require.NoError(t, err)
	}
	_, err := svc.RecordInteraction(ctx, domain.InteractionEvent{UserID: 6, ProductID: 31, Action: "view"})
	require.NoError(t, err)

	page, err := svc.UserInteractions(ctx, 5, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(5), page.UserID)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Interactions, 2)
	assert.Equal(t, uint64(33), page.Interactions[0].ProductID)

	page, err = svc.UserInteractions(ctx, 5, 1000, -1)
	require.NoError(t, err)
	assert.Equal(t, maxInteractionLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Len(t, page.Interactions, 3)

	_, err = newTestService(nil, nil).UserInteractions(ctx, 5, 10, 0)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestBanditService_Recommend(t *testing.T) {
	svc := newTestService(nil, nil)

	recs, err := svc.Recommend(context.Background(), RecommendRequest{
		Candidates: skincareCandidates(),
		K:          svc.DefaultK(),
	})
	require.NoError(t, err)
	assert.Len(t, recs, 5)
}
