package bandit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"skincareReco/domain"

	"golang.org/x/sync/errgroup"
)

type RecommendRequest struct {
	Candidates     []domain.Candidate
	K              int
	CategoryFilter string
	ExcludedIDs    []uint64

	// Seed makes the Thompson draws reproducible; nil draws a fresh seed.
	Seed *uint64
}

// Ranker orders candidates by one fresh Thompson sample per arm. It only reads arm state.
type Ranker struct {
	store       ArmStore
	chunkSize   int
	concurrency int
	seed        func() uint64
}

func NewRanker(store ArmStore, cfg Config) *Ranker {
	cfg.applyDefaults()
	return &Ranker{
		store:       store,
		chunkSize:   cfg.RankChunkSize,
		concurrency: cfg.RankConcurrency,
		seed:        rand.Uint64,
	}
}

func (r *Ranker) Recommend(ctx context.Context, req RecommendRequest) ([]domain.RankedProduct, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}
	if req.K <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidK, req.K)
	}

	survivors, err := filterCandidates(req.Candidates, req.CategoryFilter, req.ExcludedIDs)
	if err != nil {
		return nil, err
	}
	BanditRankedCandidates.Observe(float64(len(survivors)))
	if len(survivors) == 0 {
		return []domain.RankedProduct{}, nil
	}

	arms, err := r.loadArms(ctx, survivors)
	if err != nil {
		return nil, err
	}

	seed := r.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)

	ranked := make([]domain.RankedProduct, 0, len(survivors))
	for _, c := range survivors {
		arm, ok := arms[c.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: arm %d missing from snapshot", domain.ErrStorageUnavailable, c.ProductID)
		}

		ranked = append(ranked, domain.RankedProduct{
			ProductID:      c.ProductID,
			Category:       c.Category,
			Score:          SampleArm(arm, src),
			Impressions:    arm.Impressions,
			ExpectedReward: ExpectedReward(arm),
			Alpha:          arm.Alpha,
			Beta:           arm.Beta,
		})
	}

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	sortRanked(ranked)

	if len(ranked) > req.K {
		ranked = ranked[:req.K]
	}
	return ranked, nil
}

// filterCandidates applies the category filter and exclusions, drops duplicate
// ids and returns the survivors ordered by product id.
func filterCandidates(candidates []domain.Candidate, category string, excludedIDs []uint64) ([]domain.Candidate, error) {
	excluded := make(map[uint64]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	seen := make(map[uint64]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if err := ValidateProductID(c.ProductID); err != nil {
			return nil, err
		}
		if category != "" && c.Category != category {
			continue
		}
		if _, ok := excluded[c.ProductID]; ok {
			continue
		}
		if _, ok := seen[c.ProductID]; ok {
			continue
		}
		seen[c.ProductID] = struct{}{}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// loadArms snapshots the candidate arms chunk by chunk, a few chunks at a time.
func (r *Ranker) loadArms(ctx context.Context, candidates []domain.Candidate) (map[uint64]domain.Arm, error) {
	ids := make([]uint64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ProductID
	}

	if len(ids) <= r.chunkSize {
		arms, err := r.store.ListArms(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load arms: %w", err)
		}
		return arms, nil
	}

	var mu sync.Mutex
	arms := make(map[uint64]domain.Arm, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for start := 0; start < len(ids); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ids))
		chunk := ids[start:end]

		g.Go(func() error {
			part, err := r.store.ListArms(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, arm := range part {
				arms[id] = arm
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load arms: %w", err)
	}
	return arms, nil
}

// sortRanked orders by score, then by impressions, then by ascending product id.
func sortRanked(ranked []domain.RankedProduct) {
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Impressions != b.Impressions {
			return a.Impressions > b.Impressions
		}
		return a.ProductID < b.ProductID
	})
}
