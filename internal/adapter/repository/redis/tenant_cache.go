package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/surveystack/internal/domain"
)

const tenantKeyPrefix = "tenant:"

// TenantCache stores serialized tenant records under tenant:<hostname>.
type TenantCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewTenantCache creates a Redis-backed domain.TenantCache.
func NewTenantCache(client *redis.Client, logger *slog.Logger) *TenantCache {
	return &TenantCache{
		client: client,
		logger: logger.With("component", "redis_tenant_cache"),
	}
}

func tenantKey(hostname string) string {
	return tenantKeyPrefix + hostname
}

func (c *TenantCache) Get(ctx context.Context, hostname string) (*domain.TenantRecord, error) {
	raw, err := c.client.Get(ctx, tenantKey(hostname)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to GET tenant from redis: %w", err)
	}

	var rec domain.TenantRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next put.
		c.logger.Warn("discarding unreadable cached tenant", "hostname", hostname, "error", err)
		return nil, domain.ErrCacheMiss
	}
	return &rec, nil
}

func (c *TenantCache) Put(ctx context.Context, hostname string, record *domain.TenantRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant: %w", err)
	}
	if err := c.client.Set(ctx, tenantKey(hostname), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to SET tenant in redis: %w", err)
	}
	return nil
}

func (c *TenantCache) Delete(ctx context.Context, hostname string) error {
	if err := c.client.Del(ctx, tenantKey(hostname)).Err(); err != nil {
		return fmt.Errorf("failed to DEL tenant in redis: %w", err)
	}
	return nil
}
