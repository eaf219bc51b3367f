package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/V4T54L/surveystack/internal/domain"
)

const analyticsStagingTable = "analytics_import"

// AnalyticsRepository is the domain.EventSink backed by the analytics table.
type AnalyticsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAnalyticsRepository creates a new PostgreSQL analytics sink.
func NewAnalyticsRepository(db *sql.DB, logger *slog.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, logger: logger.With("component", "postgres_analytics")}
}

// WriteEventBatch copies events into a staging table and merges them into
// analytics. Events already stored are skipped, so redelivered batches are harmless.
func (r *AnalyticsRepository) WriteEventBatch(ctx context.Context, events []domain.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+analyticsStagingTable+` (LIKE analytics INCLUDING DEFAULTS) ON COMMIT DROP`)
	if err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(analyticsStagingTable,
		"event_id", "tenant_id", "hostname", "event", "session_id", "path", "referrer", "user_agent", "data", "pii_redacted", "received_at"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, e := range events {
		_, err = stmt.ExecContext(ctx, e.ID, nullUUID(e.TenantID), e.Hostname, e.Event, e.SessionID, e.Path, e.Referrer, e.UserAgent, nullJSON(e.Data), e.PIIRedacted, e.ReceivedAt)
		if err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy event %s: %w", e.ID, err)
		}
	}
	// Flushes the COPY.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	res, err := txn.ExecContext(ctx, `
		INSERT INTO analytics (event_id, tenant_id, hostname, event, session_id, path, referrer, user_agent, data, pii_redacted, received_at)
		SELECT event_id, tenant_id, hostname, event, session_id, path, referrer, user_agent, data, pii_redacted, received_at
		FROM `+analyticsStagingTable+`
		ON CONFLICT (event_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("merge analytics: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && int(n) < len(events) {
		r.logger.Debug("skipped already stored events", "skipped", len(events)-int(n))
	}
	return nil
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

func nullJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
