package bandit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skincareReco/domain"
	"skincareReco/pkg/logger"

	"gorm.io/datatypes"
)

const (
	sourceInteraction = "interaction"
	sourceDirect      = "direct"

	defaultInteractionLimit = 50
	maxInteractionLimit     = 500
)

// EventRepository is the optional append-only interaction log.
type EventRepository interface {
	SaveInteraction(ctx context.Context, event domain.InteractionEvent) error
	ListByProduct(ctx context.Context, productID uint64, limit, offset int) ([]domain.InteractionEvent, int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]domain.InteractionEvent, int64, error)
	ActionStats(ctx context.Context, productID uint64) ([]domain.ActionStat, error)
}

// BanditService is the entry point used by the API layer.
type BanditService struct {
	store      ArmStore
	ingestor   *Ingestor
	ranker     *Ranker
	reporter   *Reporter
	eventRepo  EventRepository
	policyRepo PolicyRepository
	defaultCfg Config
	now        func() time.Time
}

func NewBanditService(
	store ArmStore,
	eventRepo EventRepository,
	policyRepo PolicyRepository,
	defaultCfg Config,
) *BanditService {
	if err := defaultCfg.Validate(); err != nil {
		logger.Warn("invalid bandit config, using defaults", "error", err)
		defaultCfg = DefaultConfig()
	}

	return &BanditService{
		store:      store,
		ingestor:   NewIngestor(store),
		ranker:     NewRanker(store, defaultCfg),
		reporter:   NewReporter(store),
		eventRepo:  eventRepo,
		policyRepo: policyRepo,
		defaultCfg: defaultCfg,
		now:        time.Now,
	}
}

func (s *BanditService) DefaultK() int {
	return s.defaultCfg.DefaultK
}

//  Recommendation / serving

func (s *BanditService) Recommend(ctx context.Context, req RecommendRequest) ([]domain.RankedProduct, error) {
	recs, err := s.ranker.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.Debug("bandit_recommend",
		"trace_id", TraceIDFromContext(ctx),
		"candidate_count", len(req.Candidates),
		"category", req.CategoryFilter,
		"excluded", len(req.ExcludedIDs),
		"k", req.K,
		"returned", len(recs),
	)

	return recs, nil
}

//  Feedback / learning

// RecordInteraction applies one tracked user action. The interaction log is
// written only after the arm update has committed.
func (s *BanditService) RecordInteraction(ctx context.Context, event domain.InteractionEvent) (domain.ArmSummary, error) {
	policy := s.loadPolicy(ctx)

	arm, obs, err := s.ingestor.RecordInteraction(ctx, policy, event)
	if err != nil {
		s.countUpdate(sourceInteraction, event.Action, err)
		return domain.ArmSummary{}, err
	}
	s.countUpdate(sourceInteraction, event.Action, nil)

	logger.Debug("bandit_feedback",
		"trace_id", TraceIDFromContext(ctx),
		"user_id", event.UserID,
		"product_id", event.ProductID,
		"action", event.Action,
		"raw_reward", obs.RawReward,
		"normalized_reward", obs.NormalizedReward,
		"weight", obs.Weight,
		"alpha", arm.Alpha,
		"beta", arm.Beta,
	)

	s.logInteraction(ctx, event, obs)

	return Summarize(arm), nil
}

// UpdateBandit applies a raw reward directly, bypassing the action table.
func (s *BanditService) UpdateBandit(ctx context.Context, productID uint64, reward float64, impressionCount *int64) (domain.ArmSummary, error) {
	policy := s.loadPolicy(ctx)

	arm, obs, err := s.ingestor.UpdateBandit(ctx, policy, productID, reward, impressionCount)
	if err != nil {
		s.countUpdate(sourceDirect, "", err)
		return domain.ArmSummary{}, err
	}
	s.countUpdate(sourceDirect, "", nil)

	logger.Info("bandit_update",
		"trace_id", TraceIDFromContext(ctx),
		"product_id", productID,
		"raw_reward", obs.RawReward,
		"normalized_reward", obs.NormalizedReward,
		"weight", obs.Weight,
		"alpha", arm.Alpha,
		"beta", arm.Beta,
		"impressions", arm.Impressions,
	)

	return Summarize(arm), nil
}

func (s *BanditService) logInteraction(ctx context.Context, event domain.InteractionEvent, obs Observation) {
	if s.eventRepo == nil {
		return
	}

	event.NormalizedReward = obs.NormalizedReward
	if event.Reward == nil {
		raw := obs.RawReward
		event.Reward = &raw
	}
	if event.ImpressionCount == nil {
		w := obs.Weight
		event.ImpressionCount = &w
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	extra := map[string]any{}
	if tid := TraceIDFromContext(ctx); tid != "" {
		extra["trace_id"] = tid
	}
	event.Context = datatypes.JSONMap(mergeContext(event.Context, extra))

	// the observation is already applied; a lost log row must not trigger a retry
	if err := s.eventRepo.SaveInteraction(ctx, event); err != nil {
		logger.Warn("failed to save interaction event",
			"trace_id", TraceIDFromContext(ctx),
			"product_id", event.ProductID,
			"error", err,
		)
	}
}

// mergeContext merges multiple maps into a new one.
func mergeContext(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func (s *BanditService) countUpdate(source, action string, err error) {
	result := "applied"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStorageUnavailable):
		result = "storage_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "cancelled"
	default:
		result = "rejected"
	}

	if a, perr := ParseAction(action); perr == nil {
		action = string(a)
	} else if action != "" {
		action = "unknown"
	}

	BanditFeedbackEventsTotal.WithLabelValues(source, action, result).Inc()
}

//  Reporting

func (s *BanditService) Statistics(ctx context.Context, productIDs []uint64) (domain.BanditStatistics, error) {
	return s.reporter.Statistics(ctx, productIDs)
}

// ProductState returns one arm, created with the prior if it has not been seen.
func (s *BanditService) ProductState(ctx context.Context, productID uint64) (domain.ArmSummary, error) {
	arm, err := s.store.GetOrCreate(ctx, productID)
	if err != nil {
		return domain.ArmSummary{}, fmt.Errorf("get arm: %w", err)
	}
	return Summarize(arm), nil
}

func (s *BanditService) ProductInteractions(ctx context.Context, productID uint64, limit, offset int) (domain.ProductInteractions, error) {
	if s.eventRepo == nil {
		return domain.ProductInteractions{}, fmt.Errorf("%w: interaction log is not configured", domain.ErrStorageUnavailable)
	}
	if err := ValidateProductID(productID); err != nil {
		return domain.ProductInteractions{}, err
	}
	limit, offset = pageBounds(limit, offset)

	events, total, err := s.eventRepo.ListByProduct(ctx, productID, limit, offset)
	if err != nil {
		return domain.ProductInteractions{}, fmt.Errorf("list interactions: %w", err)
	}

	stats, err := s.eventRepo.ActionStats(ctx, productID)
	if err != nil {
		return domain.ProductInteractions{}, fmt.Errorf("interaction stats: %w", err)
	}

	return domain.ProductInteractions{
		ProductID:    productID,
		Interactions: events,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
		Statistics:   stats,
	}, nil
}

// UserInteractions pages through one user's history, newest first.
func (s *BanditService) UserInteractions(ctx context.Context, userID uint, limit, offset int) (domain.UserInteractions, error) {
	if s.eventRepo == nil {
		return domain.UserInteractions{}, fmt.Errorf("%w: interaction log is not configured", domain.ErrStorageUnavailable)
	}
	limit, offset = pageBounds(limit, offset)

	events, total, err := s.eventRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return domain.UserInteractions{}, fmt.Errorf("list user interactions: %w", err)
	}

	return domain.UserInteractions{
		UserID:       userID,
		Interactions: events,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultInteractionLimit
	}
	if limit > maxInteractionLimit {
		limit = maxInteractionLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

//  Reward policy administration

func (s *BanditService) RewardPolicy(ctx context.Context) domain.BanditConfig {
	return s.loadPolicy(ctx).ToConfig(DefaultPolicyName)
}

func (s *BanditService) UpdateRewardPolicy(ctx context.Context, cfg domain.BanditConfig) (domain.BanditConfig, error) {
	if s.policyRepo == nil {
		return domain.BanditConfig{}, fmt.Errorf("%w: reward policy storage is not configured", domain.ErrStorageUnavailable)
	}

	policy := PolicyFromConfig(cfg)
	if err := policy.Validate(); err != nil {
		return domain.BanditConfig{}, fmt.Errorf("%w: %v", domain.ErrInvalidReward, err)
	}

	cfg.Name = DefaultPolicyName
	if err := s.policyRepo.UpsertRewardPolicy(ctx, cfg); err != nil {
		return domain.BanditConfig{}, fmt.Errorf("upsert reward policy: %w", err)
	}

	logger.Info("bandit_reward_policy_updated",
		"trace_id", TraceIDFromContext(ctx),
		"reward_view", cfg.RewardView,
		"reward_click", cfg.RewardClick,
		"reward_add_to_cart", cfg.RewardAddToCart,
		"max_observed_reward", cfg.MaxObservedReward,
	)

	return policy.ToConfig(DefaultPolicyName), nil
}
