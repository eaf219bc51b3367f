package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/domain/mocks"
	"github.com/V4T54L/surveystack/internal/vertical"
)

func newTestResolver(store domain.TenantStore, cache domain.TenantCache) (*ResolveTenantUseCase, *metrics.Metrics) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	deriver := vertical.NewDeriver(vertical.DefaultTaxonomy())
	return NewResolveTenantUseCase(store, cache, deriver, logger, m, time.Minute, time.Second), m
}

func TestResolveTenant_FirstSightCreates(t *testing.T) {
	store := mocks.NewMockTenantStore()
	cache := mocks.NewMockTenantCache()
	uc, m := newTestResolver(store, cache)

	rec, err := uc.Resolve(context.Background(), "baliDreamtrip.com")
	require.NoError(t, err)

	assert.Equal(t, "balidreamtrip.com", rec.Hostname)
	assert.Equal(t, "travel", rec.Vertical)
	assert.Equal(t, "Balidreamtrip", rec.Topic)
	assert.Equal(t, "Balidreamtrip Travel Survey", rec.Title)
	assert.True(t, rec.Features.Store)
	assert.Equal(t, "#0ea5e9", rec.PrimaryColor)
	assert.Equal(t, "#f97316", rec.SecondaryColor)

	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 2, store.FindCalls, "lookup plus read-back")
	assert.Contains(t, cache.Entries, "balidreamtrip.com")
	assert.Equal(t, time.Minute, cache.TTLs["balidreamtrip.com"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantResolutions.WithLabelValues(metrics.OutcomeCreated)))
}

func TestResolveTenant_CacheHitSkipsStore(t *testing.T) {
	store := mocks.NewMockTenantStore()
	cache := mocks.NewMockTenantCache()
	cache.Entries["example.com"] = domain.TenantRecord{Hostname: "example.com", Title: "Cached"}
	uc, m := newTestResolver(store, cache)

	rec, err := uc.Resolve(context.Background(), "www.example.com")
	require.NoError(t, err)

	assert.Equal(t, "Cached", rec.Title)
	assert.Zero(t, store.FindCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantResolutions.WithLabelValues(metrics.OutcomeCacheHit)))
}

func TestResolveTenant_StoreHitPopulatesCache(t *testing.T) {
	store := mocks.NewMockTenantStore()
	require.NoError(t, store.InsertIfAbsent(context.Background(), "thecoffeesurvey.com", domain.TenantConfig{Title: "Frozen Title", Vertical: "food"}))
	store.InsertCalls = 0
	cache := mocks.NewMockTenantCache()
	uc, m := newTestResolver(store, cache)

	rec, err := uc.Resolve(context.Background(), "thecoffeesurvey.com")
	require.NoError(t, err)

	// Existing rows are never re-derived.
	assert.Equal(t, "Frozen Title", rec.Title)
	assert.Zero(t, store.InsertCalls)
	assert.Equal(t, "Frozen Title", cache.Entries["thecoffeesurvey.com"].Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantResolutions.WithLabelValues(metrics.OutcomeStoreHit)))
}

func TestResolveTenant_ConcurrentFirstSightConverges(t *testing.T) {
	store := mocks.NewMockTenantStore()
	// Widen the window between lookup and insert.
	store.InsertHook = func() { time.Sleep(5 * time.Millisecond) }

	// Two resolvers model two server processes sharing one database.
	ucA, _ := newTestResolver(store, mocks.NewMockTenantCache())
	ucB, _ := newTestResolver(store, mocks.NewMockTenantCache())

	const n = 40
	results := make([]*domain.TenantRecord, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uc := ucA
			if i%2 == 1 {
				uc = ucB
			}
			results[i], errs[i] = uc.Resolve(context.Background(), "random7742.net")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 1, store.Inserted)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
		assert.Equal(t, "random7742.net", results[i].Hostname)
		assert.Equal(t, "Random7742", results[i].Topic)
		assert.Equal(t, "Random7742 Survey", results[i].Title)
		assert.Equal(t, vertical.FallbackKey, results[i].Vertical)
		assert.False(t, results[i].Features.Store)
		assert.Equal(t, results[0].Features, results[i].Features)
	}
}

func TestResolveTenant_CallersGetIndependentCopies(t *testing.T) {
	store := mocks.NewMockTenantStore()
	uc, _ := newTestResolver(store, nil)

	a, err := uc.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	a.Title = "mutated"

	b, err := uc.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", b.Title)
}

func TestResolveTenant_NormalizationEquivalence(t *testing.T) {
	store := mocks.NewMockTenantStore()
	uc, _ := newTestResolver(store, mocks.NewMockTenantCache())

	var ids []string
	for _, h := range []string{"WWW.Example.com", "example.com", "EXAMPLE.COM", "example.com:443"} {
		rec, err := uc.Resolve(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, "example.com", rec.Hostname)
		ids = append(ids, rec.ID.String())
	}

	assert.Equal(t, 1, store.Count())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResolveTenant_CacheTransparency(t *testing.T) {
	store := mocks.NewMockTenantStore()
	cache := mocks.NewMockTenantCache()
	uc, _ := newTestResolver(store, cache)
	ctx := context.Background()

	before, err := uc.Resolve(ctx, "golfpoll.com")
	require.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, "golfpoll.com"))

	after, err := uc.Resolve(ctx, "golfpoll.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, store.Count())
}

func TestResolveTenant_CacheFailuresAreNotFatal(t *testing.T) {
	store := mocks.NewMockTenantStore()
	cache := mocks.NewMockTenantCache()
	cache.GetErr = errors.New("connection refused")
	cache.PutErr = errors.New("connection refused")
	uc, m := newTestResolver(store, cache)

	rec, err := uc.Resolve(context.Background(), "thecoffeesurvey.com")
	require.NoError(t, err)
	assert.Equal(t, "Coffee Food Survey", rec.Title)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TenantCacheErrors))
}

func TestResolveTenant_StoreFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *mocks.MockTenantStore)
	}{
		{"lookup fails", func(s *mocks.MockTenantStore) { s.FindErr = errors.New("dial tcp: connection refused") }},
		{"insert fails", func(s *mocks.MockTenantStore) { s.InsertErr = errors.New("dial tcp: connection refused") }},
		{"read back misses", func(s *mocks.MockTenantStore) { s.HideAfterInsert = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockTenantStore()
			tt.setup(store)
			cache := mocks.NewMockTenantCache()
			uc, m := newTestResolver(store, cache)

			rec, err := uc.Resolve(context.Background(), "example.com")
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
			assert.Empty(t, cache.Entries)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantResolutions.WithLabelValues(metrics.OutcomeError)))
		})
	}
}

func TestResolveTenant_InvalidHostname(t *testing.T) {
	uc, _ := newTestResolver(mocks.NewMockTenantStore(), nil)

	_, err := uc.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidHostname)
}

func TestResolveTenant_InsertSurvivesCallerCancellation(t *testing.T) {
	store := mocks.NewMockTenantStore()
	started := make(chan struct{})
	release := make(chan struct{})
	store.InsertHook = func() {
		close(started)
		<-release
	}
	uc, _ := newTestResolver(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := uc.Resolve(ctx, "abandoned.com")
		done <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool { return store.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestResolveTenant_Config(t *testing.T) {
	uc, _ := newTestResolver(mocks.NewMockTenantStore(), nil)

	cfg := uc.Config("WWW.thecoffeesurvey.com")
	assert.Equal(t, "food", cfg.Vertical)
	assert.Equal(t, "Coffee Food Survey", cfg.Title)
}
