package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/vertical"
)

const (
	DefaultTenantCacheTTL = 300 * time.Second
	DefaultStoreTimeout   = 5 * time.Second
)

// ResolveTenantUseCase maps an incoming hostname to its single persisted tenant
// record, creating the record on first sight.
type ResolveTenantUseCase struct {
	store        domain.TenantStore
	cache        domain.TenantCache
	deriver      *vertical.Deriver
	logger       *slog.Logger
	metrics      *metrics.Metrics
	cacheTTL     time.Duration
	storeTimeout time.Duration
	inflight     singleflight.Group
}

// NewResolveTenantUseCase creates a new ResolveTenantUseCase. m may be nil.
func NewResolveTenantUseCase(
	store domain.TenantStore,
	cache domain.TenantCache,
	deriver *vertical.Deriver,
	logger *slog.Logger,
	m *metrics.Metrics,
	cacheTTL, storeTimeout time.Duration,
) *ResolveTenantUseCase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultTenantCacheTTL
	}
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &ResolveTenantUseCase{
		store:        store,
		cache:        cache,
		deriver:      deriver,
		logger:       logger.With("component", "tenant_resolver"),
		metrics:      m,
		cacheTTL:     cacheTTL,
		storeTimeout: storeTimeout,
	}
}

type resolution struct {
	record  *domain.TenantRecord
	outcome string
}

// Resolve returns the tenant record for hostname. The only error it returns
// besides ErrInvalidHostname and context errors wraps domain.ErrStoreUnavailable.
func (uc *ResolveTenantUseCase) Resolve(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	start := time.Now()
	hostname = vertical.NormalizeHostname(hostname)
	if hostname == "" {
		return nil, domain.ErrInvalidHostname
	}

	// 1. Cache
	if rec := uc.fromCache(ctx, hostname); rec != nil {
		uc.observe(metrics.OutcomeCacheHit, start)
		return rec, nil
	}

	// 2-5. Store lookup, creation and read-back, collapsed per hostname.
	// The shared call is detached from any single caller's cancellation so
	// that an insert already sent to the store is allowed to commit.
	ch := uc.inflight.DoChan(hostname, func() (any, error) {
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.storeTimeout)
		defer cancel()
		return uc.loadOrCreate(detached, hostname)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			uc.observe(metrics.OutcomeError, start)
			uc.logger.Error("failed to resolve tenant", "hostname", hostname, "error", res.Err)
			return nil, res.Err
		}
		r := res.Val.(resolution)
		uc.observe(r.outcome, start)
		rec := *r.record
		return &rec, nil
	}
}

// Config returns the configuration derived from hostname.
func (uc *ResolveTenantUseCase) Config(hostname string) domain.TenantConfig {
	return uc.deriver.Derive(vertical.NormalizeHostname(hostname))
}

func (uc *ResolveTenantUseCase) loadOrCreate(ctx context.Context, hostname string) (resolution, error) {
	rec, err := uc.store.FindByHostname(ctx, hostname)
	if err != nil {
		return resolution{}, storeUnavailable("find tenant", err)
	}
	if rec != nil {
		uc.toCache(ctx, hostname, rec)
		return resolution{record: rec, outcome: metrics.OutcomeStoreHit}, nil
	}

	cfg := uc.deriver.Derive(hostname)
	if err := uc.store.InsertIfAbsent(ctx, hostname, cfg); err != nil {
		return resolution{}, storeUnavailable("insert tenant", err)
	}

	// Read back whichever row won the insert race.
	rec, err = uc.store.FindByHostname(ctx, hostname)
	if err != nil {
		return resolution{}, storeUnavailable("read back tenant", err)
	}
	if rec == nil {
		return resolution{}, fmt.Errorf("%w: tenant %q missing after insert", domain.ErrStoreUnavailable, hostname)
	}

	uc.logger.Info("tenant created", "hostname", hostname, "vertical", rec.Vertical, "topic", rec.Topic)
	uc.toCache(ctx, hostname, rec)
	return resolution{record: rec, outcome: metrics.OutcomeCreated}, nil
}

func (uc *ResolveTenantUseCase) fromCache(ctx context.Context, hostname string) *domain.TenantRecord {
	if uc.cache == nil {
		return nil
	}
	rec, err := uc.cache.Get(ctx, hostname)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			uc.cacheFailed("read", hostname, err)
		}
		return nil
	}
	return rec
}

func (uc *ResolveTenantUseCase) toCache(ctx context.Context, hostname string, rec *domain.TenantRecord) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Put(ctx, hostname, rec, uc.cacheTTL); err != nil {
		uc.cacheFailed("write", hostname, err)
	}
}

func (uc *ResolveTenantUseCase) cacheFailed(op, hostname string, err error) {
	if uc.metrics != nil {
		uc.metrics.TenantCacheErrors.Inc()
	}
	uc.logger.Warn("tenant cache "+op+" failed, continuing", "hostname", hostname, "error", err)
}

func (uc *ResolveTenantUseCase) observe(outcome string, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.TenantResolutions.WithLabelValues(outcome).Inc()
	uc.metrics.TenantResolveDuration.Observe(time.Since(start).Seconds())
}

func storeUnavailable(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
