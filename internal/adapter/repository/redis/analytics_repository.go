package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/surveystack/internal/domain"
)

const (
	// DefaultStreamKey is the analytics stream used when none is configured.
	DefaultStreamKey = "analytics_events"
	payloadField     = "payload"
	readBlock        = 2 * time.Second
)

// AnalyticsRepository buffers analytics events in a Redis Stream and reads them
// back through a consumer group. When a spool is configured, events that cannot
// reach Redis are written to it and replayed once Redis recovers.
type AnalyticsRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	stream      string
	spool       domain.EventSpool
	isAvailable atomic.Bool
}

// NewAnalyticsRepository creates a new Redis-backed analytics buffer and makes
// sure the consumer group exists. The spool is optional; consumers pass nil.
func NewAnalyticsRepository(client *redis.Client, logger *slog.Logger, stream, group string, spool domain.EventSpool) *AnalyticsRepository {
	if stream == "" {
		stream = DefaultStreamKey
	}
	repo := &AnalyticsRepository{
		client: client,
		logger: logger.With("component", "redis_analytics"),
		stream: stream,
		spool:  spool,
	}
	repo.isAvailable.Store(true)

	if group != "" {
		if err := repo.EnsureGroup(context.Background(), group); err != nil {
			repo.isAvailable.Store(false)
			repo.logger.Error("failed to set up consumer group, redis may be unavailable on startup", "error", err)
		}
	}
	return repo
}

// EnsureGroup creates the consumer group and the stream if they are missing.
func (r *AnalyticsRepository) EnsureGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// StartHealthCheck pings Redis every interval and drains the spool after an outage.
// It blocks until ctx is done.
func (r *AnalyticsRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.spool == nil {
		r.logger.Info("spool is not configured, skipping health check")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Events spooled by a previous run.
	if r.isAvailable.Load() {
		if err := r.DrainSpool(ctx); err != nil {
			r.logger.Error("failed to replay spooled events on startup", "error", err)
			r.isAvailable.Store(false)
		}
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping redis health check")
			return
		case <-ticker.C:
			if err := r.client.Ping(ctx).Err(); err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("redis connection lost", "error", err)
				}
				continue
			}
			if r.isAvailable.Load() {
				continue
			}
			if err := r.DrainSpool(ctx); err != nil {
				r.logger.Error("failed to replay spooled events", "error", err)
				continue
			}
			r.isAvailable.Store(true)
			r.logger.Info("redis available, spool drained")
		}
	}
}

// DrainSpool pushes every spooled event into the stream.
func (r *AnalyticsRepository) DrainSpool(ctx context.Context) error {
	if r.spool == nil {
		return nil
	}
	return r.spool.Drain(ctx, func(event domain.AnalyticsEvent) error {
		return r.add(ctx, event)
	})
}

// BufferEvent appends the event to the stream, or to the spool while Redis is down.
func (r *AnalyticsRepository) BufferEvent(ctx context.Context, event domain.AnalyticsEvent) error {
	if !r.isAvailable.Load() {
		if r.spool == nil {
			return errors.New("redis is unavailable and no spool is configured")
		}
		r.logger.Warn("redis is unavailable, spooling event", "event_id", event.ID)
		return r.spool.Append(ctx, event)
	}

	err := r.add(ctx, event)
	if err == nil || !isNetworkError(err) {
		return err
	}
	if r.isAvailable.CompareAndSwap(true, false) {
		r.logger.Error("redis connection lost during write", "error", err)
	}
	if r.spool == nil {
		return fmt.Errorf("redis became unavailable and no spool is configured: %w", err)
	}
	r.logger.Warn("redis became unavailable, spooling event", "event_id", event.ID)
	return r.spool.Append(ctx, event)
}

func (r *AnalyticsRepository) add(ctx context.Context, event domain.AnalyticsEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{payloadField: payload},
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadEventBatch reads up to count new events for consumer in group.
func (r *AnalyticsRepository) ReadEventBatch(ctx context.Context, group, consumer string, count int) ([]domain.AnalyticsEvent, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.stream, ">"},
		Count:    int64(count),
		Block:    readBlock,
	}

	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return r.decode(streams[0].Messages), nil
}

// AcknowledgeEvents marks stream messages as processed for group.
func (r *AnalyticsRepository) AcknowledgeEvents(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) decode(messages []redis.XMessage) []domain.AnalyticsEvent {
	events := make([]domain.AnalyticsEvent, 0, len(messages))
	for _, msg := range messages {
		payload, ok := msg.Values[payloadField].(string)
		if !ok {
			r.logger.Warn("invalid message format in stream, skipping", "message_id", msg.ID)
			continue
		}
		var event domain.AnalyticsEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			r.logger.Warn("failed to unmarshal analytics event from stream, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}
	return events
}

func isBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
