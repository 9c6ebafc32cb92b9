package domain

import "errors"

var (
	// ErrInvalidReward is returned before any mutation when a reward or weight is out of domain.
	ErrInvalidReward = errors.New("invalid reward")
	// ErrUnknownAction rejects interaction events whose action has no reward mapping.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidProductID is returned for malformed arm keys.
	ErrInvalidProductID = errors.New("invalid product id")
	// ErrStorageUnavailable is transient; callers decide whether to retry.
	ErrStorageUnavailable = errors.New("bandit storage unavailable")
	ErrInvalidK           = errors.New("n must be a positive integer")
	ErrCatalogUnavailable = errors.New("product catalog unavailable")
)
