package bandit

import (
	"context"

	"skincareReco/pkg/logger"
)

// loadPolicy reads the stored reward policy, falling back to the configured default.
func (s *BanditService) loadPolicy(ctx context.Context) RewardPolicy {
	if s.policyRepo == nil {
		return s.defaultCfg.Policy
	}

	dbCfg, ok, err := s.policyRepo.GetRewardPolicy(ctx, DefaultPolicyName)
	if err != nil {
		logger.Warn("bandit_policy_fallback", "trace_id", TraceIDFromContext(ctx), "error", err)
		return s.defaultCfg.Policy
	}
	if !ok {
		return s.defaultCfg.Policy
	}

	policy := PolicyFromConfig(dbCfg)
	if err := policy.Validate(); err != nil {
		logger.Warn("bandit_policy_invalid", "trace_id", TraceIDFromContext(ctx), "error", err)
		return s.defaultCfg.Policy
	}

	return policy
}
