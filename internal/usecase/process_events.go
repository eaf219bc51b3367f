package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/domain"
)

const (
	defaultBatchSize    = 500
	defaultRetryCount   = 3
	defaultRetryBackoff = 1 * time.Second
)

// ProcessEventsUseCase moves analytics events from the buffer into the sink.
type ProcessEventsUseCase struct {
	buffer       domain.EventBuffer
	sink         domain.EventSink
	logger       *slog.Logger
	metrics      *metrics.Metrics
	group        string
	consumer     string
	retryCount   int
	retryBackoff time.Duration
}

// NewProcessEventsUseCase creates a new use case for processing analytics events.
// Non-positive retry settings fall back to the defaults.
func NewProcessEventsUseCase(buffer domain.EventBuffer, sink domain.EventSink, logger *slog.Logger, m *metrics.Metrics, group, consumer string, retryCount int, retryBackoff time.Duration) *ProcessEventsUseCase {
	if retryCount <= 0 {
		retryCount = defaultRetryCount
	}
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	return &ProcessEventsUseCase{
		buffer:       buffer,
		sink:         sink,
		logger:       logger.With("component", "event_processor"),
		metrics:      m,
		group:        group,
		consumer:     consumer,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
	}
}

// ProcessBatch reads a batch of events, writes them to the sink,
// and acknowledges them in the buffer on success.
func (uc *ProcessEventsUseCase) ProcessBatch(ctx context.Context) (int, error) {
	// 1. Read a batch from the buffer (Redis)
	events, err := uc.buffer.ReadEventBatch(ctx, uc.group, uc.consumer, defaultBatchSize)
	if err != nil {
		uc.logger.Error("failed to read event batch from buffer", "error", err)
		return 0, err
	}
	return uc.sinkAndAck(ctx, events)
}

// ReclaimIdle takes over events left pending by consumers that stopped before
// acknowledging them, and processes them like a fresh batch.
func (uc *ProcessEventsUseCase) ReclaimIdle(ctx context.Context, admin domain.StreamAdmin, minIdle time.Duration) (int, error) {
	events, err := admin.ClaimIdle(ctx, uc.group, uc.consumer, minIdle, defaultBatchSize)
	if err != nil {
		uc.logger.Error("failed to claim idle events", "error", err)
		return 0, err
	}
	if len(events) > 0 {
		uc.logger.Info("reclaimed idle events", "count", len(events))
	}
	return uc.sinkAndAck(ctx, events)
}

func (uc *ProcessEventsUseCase) sinkAndAck(ctx context.Context, events []domain.AnalyticsEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of events from buffer", "count", len(events))

	// 2. Write to the sink (PostgreSQL) with retries
	if err := uc.writeWithRetry(ctx, events); err != nil {
		uc.count("error_sink", len(events))
		uc.logger.Error("failed to write event batch to sink after retries", "error", err)
		// Unacked messages stay pending and are redelivered; the sink is idempotent.
		return 0, err
	}
	uc.count("sunk", len(events))

	// 3. Acknowledge in the buffer
	messageIDs := make([]string, 0, len(events))
	for _, event := range events {
		if event.StreamMessageID != "" {
			messageIDs = append(messageIDs, event.StreamMessageID)
		}
	}
	if err := uc.buffer.AcknowledgeEvents(ctx, uc.group, messageIDs...); err != nil {
		uc.logger.Error("failed to acknowledge events in buffer", "error", err)
		return 0, err
	}

	uc.logger.Info("processed analytics batch", "count", len(events))
	return len(events), nil
}

func (uc *ProcessEventsUseCase) writeWithRetry(ctx context.Context, events []domain.AnalyticsEvent) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sink.WriteEventBatch(ctx, events)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write batch to sink, retrying", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (uc *ProcessEventsUseCase) count(status string, n int) {
	if uc.metrics != nil {
		uc.metrics.AnalyticsEvents.WithLabelValues(status).Add(float64(n))
	}
}
