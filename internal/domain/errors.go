package domain

import "errors"

var (
	// ErrStoreUnavailable is the only failure tenant resolution surfaces to callers.
	ErrStoreUnavailable = errors.New("tenant store unavailable")

	// ErrCacheMiss means the cache holds no entry; it never implies the tenant is absent.
	ErrCacheMiss = errors.New("tenant cache miss")

	ErrTenantNotFound       = errors.New("tenant not found")
	ErrInvalidHostname      = errors.New("invalid hostname")
	ErrUnknownFeature       = errors.New("unknown feature")
	ErrFeatureDisabled      = errors.New("feature disabled for tenant")
	ErrInvalidEmail         = errors.New("valid email required")
	ErrGeneratorUnavailable = errors.New("text generator unavailable")
	ErrMissingFields        = errors.New("missing fields")
	ErrQuestionNotFound     = errors.New("question not found")
)
