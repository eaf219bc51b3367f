package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/surveystack/internal/adapter/metrics"
	"github.com/V4T54L/surveystack/internal/adapter/pii"
	"github.com/V4T54L/surveystack/internal/domain"
)

const trackTimeout = 2 * time.Second

// EventObserver is told about every tracked event, buffered or not.
type EventObserver interface {
	Observe(event domain.AnalyticsEvent)
}

// TrackEventUseCase enriches, redacts, and buffers analytics events.
type TrackEventUseCase struct {
	buffer   domain.EventBuffer
	redactor *pii.Redactor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	observer EventObserver
}

// NewTrackEventUseCase creates a new TrackEventUseCase. A nil buffer drops events.
func NewTrackEventUseCase(buffer domain.EventBuffer, redactor *pii.Redactor, logger *slog.Logger, m *metrics.Metrics) *TrackEventUseCase {
	return &TrackEventUseCase{
		buffer:   buffer,
		redactor: redactor,
		logger:   logger.With("component", "event_tracker"),
		metrics:  m,
	}
}

// SetObserver registers o to receive tracked events. Must be called before serving.
func (uc *TrackEventUseCase) SetObserver(o EventObserver) {
	uc.observer = o
}

// Track validates, enriches, redacts, and buffers an analytics event.
func (uc *TrackEventUseCase) Track(ctx context.Context, event *domain.AnalyticsEvent) error {
	// 1. Enrich with server-side data
	event.ReceivedAt = time.Now().UTC()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	// 2. Redact PII
	if uc.redactor != nil {
		if err := uc.redactor.Redact(event); err != nil {
			// Unparseable payloads are dropped rather than stored unredacted.
			uc.logger.Warn("dropping unparseable event data", "error", err, "event_id", event.ID)
			event.Data = nil
		}
	}

	if uc.observer != nil {
		uc.observer.Observe(*event)
	}

	if uc.buffer == nil {
		uc.logger.Debug("no event buffer configured, dropping event", "event", event.Event, "hostname", event.Hostname)
		return nil
	}

	// 3. Buffer the event
	if err := uc.buffer.BufferEvent(ctx, *event); err != nil {
		uc.count("error_buffer")
		uc.logger.Error("failed to buffer analytics event", "error", err, "event_id", event.ID)
		return err
	}
	uc.count("buffered")
	return nil
}

// TrackAsync buffers the event in the background. Failures are logged only;
// request cancellation does not abort the write.
func (uc *TrackEventUseCase) TrackAsync(ctx context.Context, event domain.AnalyticsEvent) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackTimeout)
	go func() {
		defer cancel()
		_ = uc.Track(detached, &event)
	}()
}

func (uc *TrackEventUseCase) count(status string) {
	if uc.metrics != nil {
		uc.metrics.AnalyticsEvents.WithLabelValues(status).Inc()
	}
}
