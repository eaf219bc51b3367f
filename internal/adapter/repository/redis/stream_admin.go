package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/surveystack/internal/domain"
)

// GroupInfo lists the consumer groups on the analytics stream.
func (r *AnalyticsRepository) GroupInfo(ctx context.Context) ([]domain.ConsumerGroupInfo, error) {
	groups, err := r.client.XInfoGroups(ctx, r.stream).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get group info for stream %s: %w", r.stream, err)
	}
	out := make([]domain.ConsumerGroupInfo, len(groups))
	for i, g := range groups {
		out[i] = domain.ConsumerGroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		}
	}
	return out, nil
}

// PendingSummary summarises delivered but unacknowledged events for group.
func (r *AnalyticsRepository) PendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	pending, err := r.client.XPending(ctx, r.stream, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending summary for group %s: %w", group, err)
	}
	return &domain.PendingSummary{
		Total:          pending.Count,
		FirstMessageID: pending.Lower,
		LastMessageID:  pending.Higher,
		ConsumerTotals: pending.Consumers,
	}, nil
}

// ClaimIdle takes over events that another consumer read but never acknowledged.
func (r *AnalyticsRepository) ClaimIdle(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AnalyticsEvent, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.stream,
		Group:  group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}
	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim events: %w", err)
	}
	return r.decode(claimed), nil
}

// Trim caps the stream at maxLen entries and returns how many were removed.
func (r *AnalyticsRepository) Trim(ctx context.Context, maxLen int64) (int64, error) {
	n, err := r.client.XTrimMaxLen(ctx, r.stream, maxLen).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to trim stream %s: %w", r.stream, err)
	}
	return n, nil
}
