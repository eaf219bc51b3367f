package redis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/surveystack/internal/adapter/repository/spool"
	"github.com/V4T54L/surveystack/internal/domain"
)

const testGroup = "analytics-processors"

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *slog.Logger) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client, slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTenantCache_RoundTrip(t *testing.T) {
	mr, client, logger := setupTestRedis(t)
	cache := NewTenantCache(client, logger)
	ctx := context.Background()

	_, err := cache.Get(ctx, "bali.com")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	rec := &domain.TenantRecord{
		ID:       uuid.New(),
		Hostname: "bali.com",
		Title:    "Bali Travel Survey",
		Vertical: "travel",
		Features: domain.FeatureFlags{Survey: true, Store: true},
	}
	require.NoError(t, cache.Put(ctx, "bali.com", rec, 5*time.Minute))
	assert.True(t, mr.Exists("tenant:bali.com"))
	assert.Equal(t, 5*time.Minute, mr.TTL("tenant:bali.com"))

	got, err := cache.Get(ctx, "bali.com")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Features, got.Features)

	mr.FastForward(6 * time.Minute)
	_, err = cache.Get(ctx, "bali.com")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestTenantCache_DeleteAndCorruptEntry(t *testing.T) {
	mr, client, logger := setupTestRedis(t)
	cache := NewTenantCache(client, logger)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "golf.com", &domain.TenantRecord{Hostname: "golf.com"}, time.Minute))
	require.NoError(t, cache.Delete(ctx, "golf.com"))
	_, err := cache.Get(ctx, "golf.com")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, mr.Set("tenant:broken.com", "{not json"))
	_, err = cache.Get(ctx, "broken.com")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestTenantCache_Unavailable(t *testing.T) {
	mr, client, logger := setupTestRedis(t)
	cache := NewTenantCache(client, logger)
	mr.Close()

	_, err := cache.Get(context.Background(), "bali.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCacheMiss)
}

func TestAnalyticsRepository_BufferReadAck(t *testing.T) {
	_, client, logger := setupTestRedis(t)
	repo := NewAnalyticsRepository(client, logger, "", testGroup, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.BufferEvent(ctx, domain.AnalyticsEvent{
			ID:       uuid.NewString(),
			Hostname: "bali.com",
			Event:    domain.EventPageView,
			Data:     json.RawMessage(`{"step":1}`),
		}))
	}

	events, err := repo.ReadEventBatch(ctx, testGroup, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "bali.com", events[0].Hostname)
	assert.JSONEq(t, `{"step":1}`, string(events[0].Data))
	for _, e := range events {
		assert.NotEmpty(t, e.StreamMessageID)
	}

	summary, err := repo.PendingSummary(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)

	ids := []string{events[0].StreamMessageID, events[1].StreamMessageID, events[2].StreamMessageID}
	require.NoError(t, repo.AcknowledgeEvents(ctx, testGroup, ids...))
	require.NoError(t, repo.AcknowledgeEvents(ctx, testGroup))

	summary, err = repo.PendingSummary(ctx, testGroup)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}

func TestAnalyticsRepository_SkipsMalformedMessages(t *testing.T) {
	_, client, logger := setupTestRedis(t)
	repo := NewAnalyticsRepository(client, logger, "events", testGroup, nil)
	ctx := context.Background()

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "events", Values: map[string]interface{}{"other": "x"}}).Err())
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "events", Values: map[string]interface{}{payloadField: "{bad"}}).Err())
	require.NoError(t, repo.BufferEvent(ctx, domain.AnalyticsEvent{ID: "ok", Event: domain.EventSignup}))

	events, err := repo.ReadEventBatch(ctx, testGroup, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].ID)
}

func TestAnalyticsRepository_ClaimIdleAndTrim(t *testing.T) {
	_, client, logger := setupTestRedis(t)
	repo := NewAnalyticsRepository(client, logger, "", testGroup, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.BufferEvent(ctx, domain.AnalyticsEvent{ID: uuid.NewString(), Event: domain.EventPageView}))
	}
	_, err := repo.ReadEventBatch(ctx, testGroup, "crashed-worker", 2)
	require.NoError(t, err)

	claimed, err := repo.ClaimIdle(ctx, testGroup, "worker-2", 0, 10)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)

	summary, err := repo.PendingSummary(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.ConsumerTotals["worker-2"])

	removed, err := repo.Trim(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestAnalyticsRepository_SpoolsWhileRedisIsDown(t *testing.T) {
	mr, client, logger := setupTestRedis(t)
	sp, err := spool.New(t.TempDir(), 1024, 64*1024, logger)
	require.NoError(t, err)
	defer sp.Close()

	repo := NewAnalyticsRepository(client, logger, "", testGroup, sp)
	ctx := context.Background()

	mr.Close()
	require.NoError(t, repo.BufferEvent(ctx, domain.AnalyticsEvent{ID: "spooled-1", Event: domain.EventPageView}))
	require.NoError(t, repo.BufferEvent(ctx, domain.AnalyticsEvent{ID: "spooled-2", Event: domain.EventPageView}))
	assert.Positive(t, sp.Size())

	require.NoError(t, mr.Restart())
	require.NoError(t, repo.DrainSpool(ctx))
	assert.Zero(t, sp.Size())

	events, err := repo.ReadEventBatch(ctx, testGroup, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "spooled-1", events[0].ID)
}

func TestAnalyticsRepository_UnavailableWithoutSpool(t *testing.T) {
	mr, client, logger := setupTestRedis(t)
	repo := NewAnalyticsRepository(client, logger, "", testGroup, nil)
	mr.Close()

	err := repo.BufferEvent(context.Background(), domain.AnalyticsEvent{ID: "lost"})
	assert.Error(t, err)
}
