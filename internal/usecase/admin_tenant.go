package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/vertical"
)

// TenantAdminStore is the store surface the admin operations need.
type TenantAdminStore interface {
	domain.TenantStore
	domain.TenantWriter
}

// AdminTenantUseCase implements operator lookups and feature toggles.
// It never creates tenants.
type AdminTenantUseCase struct {
	store  TenantAdminStore
	cache  domain.TenantCache
	logger *slog.Logger
}

// NewAdminTenantUseCase creates a new AdminTenantUseCase. cache may be nil.
func NewAdminTenantUseCase(store TenantAdminStore, cache domain.TenantCache, logger *slog.Logger) *AdminTenantUseCase {
	return &AdminTenantUseCase{
		store:  store,
		cache:  cache,
		logger: logger.With("component", "tenant_admin"),
	}
}

// Get returns the stored tenant for hostname or domain.ErrTenantNotFound.
func (uc *AdminTenantUseCase) Get(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	hostname = vertical.NormalizeHostname(hostname)
	if hostname == "" {
		return nil, domain.ErrInvalidHostname
	}
	rec, err := uc.store.FindByHostname(ctx, hostname)
	if err != nil {
		return nil, storeUnavailable("find tenant", err)
	}
	if rec == nil {
		return nil, domain.ErrTenantNotFound
	}
	return rec, nil
}

// UpdateFeatures applies a partial set of feature flags to an existing tenant.
func (uc *AdminTenantUseCase) UpdateFeatures(ctx context.Context, hostname string, overrides map[string]bool) (*domain.TenantRecord, error) {
	hostname = vertical.NormalizeHostname(hostname)
	if hostname == "" {
		return nil, domain.ErrInvalidHostname
	}
	if len(overrides) == 0 {
		return nil, fmt.Errorf("%w: no features given", domain.ErrUnknownFeature)
	}
	if _, err := (domain.FeatureFlags{}).Apply(overrides); err != nil {
		return nil, err
	}

	rec, err := uc.store.UpdateFeatures(ctx, hostname, overrides)
	if err != nil {
		return nil, storeUnavailable("update features", err)
	}
	if rec == nil {
		return nil, domain.ErrTenantNotFound
	}

	// Dropping the entry makes the toggle visible before the TTL runs out.
	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, hostname); err != nil {
			uc.logger.Warn("failed to evict tenant from cache", "hostname", hostname, "error", err)
		}
	}
	uc.logger.Info("tenant features updated", "hostname", hostname, "features", overrides)
	return rec, nil
}
