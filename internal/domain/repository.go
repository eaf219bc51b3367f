package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantStore is the durable source of truth for tenant records.
type TenantStore interface {
	// FindByHostname returns (nil, nil) when no row exists.
	FindByHostname(ctx context.Context, hostname string) (*TenantRecord, error)

	// InsertIfAbsent atomically inserts a row for hostname unless one exists.
	// A conflicting insert is a no-op, never an error.
	InsertIfAbsent(ctx context.Context, hostname string, cfg TenantConfig) error
}

// TenantWriter is used by feature modules to mutate existing rows in place.
type TenantWriter interface {
	// UpdateFeatures sets only the named flags in one statement; (nil, nil) when absent.
	UpdateFeatures(ctx context.Context, hostname string, overrides map[string]bool) (*TenantRecord, error)
	IncrementCounter(ctx context.Context, tenantID uuid.UUID, counter Counter) error
}

// TenantCache is a best-effort, TTL-bounded layer in front of the TenantStore.
type TenantCache interface {
	// Get returns ErrCacheMiss when there is no entry.
	Get(ctx context.Context, hostname string) (*TenantRecord, error)
	Put(ctx context.Context, hostname string, record *TenantRecord, ttl time.Duration) error
	Delete(ctx context.Context, hostname string) error
}

// EventBuffer durably buffers analytics events between request handling and the sink.
type EventBuffer interface {
	BufferEvent(ctx context.Context, event AnalyticsEvent) error
	ReadEventBatch(ctx context.Context, group, consumer string, count int) ([]AnalyticsEvent, error)
	AcknowledgeEvents(ctx context.Context, group string, messageIDs ...string) error
}

// EventSink is the final structured store for analytics events.
type EventSink interface {
	// WriteEventBatch must be idempotent on event ID.
	WriteEventBatch(ctx context.Context, events []AnalyticsEvent) error
}

// QuestionRepository persists generated survey questions.
type QuestionRepository interface {
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]SurveyQuestion, error)
	// InsertBatch ignores questions whose (tenant, order) already exists.
	InsertBatch(ctx context.Context, tenantID uuid.UUID, questions []SurveyQuestion) error
}

// SubscriberRepository persists newsletter subscribers.
type SubscriberRepository interface {
	// Upsert reports whether a new row was created.
	Upsert(ctx context.Context, s Subscriber) (bool, error)
}

// ResponseRepository persists survey answers.
type ResponseRepository interface {
	// Upsert stores the answer, replacing any earlier answer from the same
	// session to the same question.
	Upsert(ctx context.Context, r SurveyResponse) error
	// CountAnswers returns per-question answer counts for the tenant, each
	// slice ordered by count descending.
	CountAnswers(ctx context.Context, tenantID uuid.UUID) (map[int64][]AnswerCount, error)
}

// TextGenerator is the opaque text-generation collaborator.
type TextGenerator interface {
	// Generate returns ErrGeneratorUnavailable when no text can be produced.
	Generate(ctx context.Context, system, user string) (string, error)
}
