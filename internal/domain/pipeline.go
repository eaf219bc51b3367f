package domain

import (
	"context"
	"time"
)

// ConsumerGroupInfo describes one consumer group on the analytics stream.
type ConsumerGroupInfo struct {
	Name            string `json:"name"`
	Consumers       int64  `json:"consumers"`
	Pending         int64  `json:"pending"`
	LastDeliveredID string `json:"last_delivered_id"`
}

// PendingSummary counts delivered but unacknowledged events for a group.
type PendingSummary struct {
	Total          int64            `json:"total"`
	FirstMessageID string           `json:"first_message_id,omitempty"`
	LastMessageID  string           `json:"last_message_id,omitempty"`
	ConsumerTotals map[string]int64 `json:"consumer_totals,omitempty"`
}

// StreamAdmin inspects and repairs the analytics stream.
type StreamAdmin interface {
	GroupInfo(ctx context.Context) ([]ConsumerGroupInfo, error)
	PendingSummary(ctx context.Context, group string) (*PendingSummary, error)
	// ClaimIdle reassigns events idle for at least minIdle to consumer.
	ClaimIdle(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]AnalyticsEvent, error)
	Trim(ctx context.Context, maxLen int64) (int64, error)
}

// EventSpool holds events on local disk while the buffer is unreachable.
type EventSpool interface {
	Append(ctx context.Context, event AnalyticsEvent) error
	// Drain passes every spooled event to fn in order and empties the spool
	// only if all calls succeed.
	Drain(ctx context.Context, fn func(AnalyticsEvent) error) error
}
