package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/V4T54L/surveystack/internal/domain"
)

// QuestionRepository implements domain.QuestionRepository on survey_questions.
type QuestionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewQuestionRepository creates a new PostgreSQL question repository.
func NewQuestionRepository(db *sql.DB, logger *slog.Logger) *QuestionRepository {
	return &QuestionRepository{db: db, logger: logger.With("component", "postgres_questions")}
}

func (r *QuestionRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]domain.SurveyQuestion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question_order, question_text, question_type, options
		FROM survey_questions
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY question_order`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []domain.SurveyQuestion
	for rows.Next() {
		q := domain.SurveyQuestion{TenantID: tenantID}
		var options []byte
		if err := rows.Scan(&q.ID, &q.Order, &q.Text, &q.Type, &options); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				r.logger.Warn("ignoring unreadable question options", "question_id", q.ID, "error", err)
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// InsertBatch writes all questions in one transaction. Orders that already
// exist for the tenant are left untouched.
func (r *QuestionRepository) InsertBatch(ctx context.Context, tenantID uuid.UUID, questions []domain.SurveyQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, `
		INSERT INTO survey_questions (tenant_id, question_order, question_text, question_type, options)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, question_order) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare question insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		var options any
		if len(q.Options) > 0 {
			raw, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			options = string(raw)
		}
		if _, err := stmt.ExecContext(ctx, tenantID, q.Order, q.Text, q.Type, options); err != nil {
			return fmt.Errorf("insert question %d: %w", q.Order, err)
		}
	}
	return txn.Commit()
}

// SubscriberRepository implements domain.SubscriberRepository on subscribers.
type SubscriberRepository struct {
	db *sql.DB
}

// NewSubscriberRepository creates a new PostgreSQL subscriber repository.
func NewSubscriberRepository(db *sql.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Upsert inserts the subscriber or refreshes the name of an existing one.
// xmax is zero only for freshly inserted rows.
func (r *SubscriberRepository) Upsert(ctx context.Context, s domain.Subscriber) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO subscribers (tenant_id, email, name, session_id, referral_code, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, email) DO UPDATE
			SET name = COALESCE(NULLIF(EXCLUDED.name, ''), subscribers.name)
		RETURNING (xmax = 0)`,
		s.TenantID, s.Email, s.Name, s.SessionID, s.ReferralCode, s.Source,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert subscriber: %w", err)
	}
	return created, nil
}

// ResponseRepository implements domain.ResponseRepository on survey_responses.
type ResponseRepository struct {
	db *sql.DB
}

// NewResponseRepository creates a new PostgreSQL response repository.
func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Upsert keeps one row per (tenant, session, question); the latest answer wins.
func (r *ResponseRepository) Upsert(ctx context.Context, resp domain.SurveyResponse) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO survey_responses (tenant_id, session_id, question_id, answer)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, session_id, question_id) DO UPDATE
			SET answer = EXCLUDED.answer, updated_at = NOW()`,
		resp.TenantID, resp.SessionID, resp.QuestionID, resp.Answer,
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

func (r *ResponseRepository) CountAnswers(ctx context.Context, tenantID uuid.UUID) (map[int64][]domain.AnswerCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question_id, answer, COUNT(*) AS n
		FROM survey_responses
		WHERE tenant_id = $1
		GROUP BY question_id, answer
		ORDER BY question_id, n DESC, answer`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query answer counts: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.AnswerCount)
	for rows.Next() {
		var qid int64
		var c domain.AnswerCount
		if err := rows.Scan(&qid, &c.Answer, &c.Count); err != nil {
			return nil, fmt.Errorf("scan answer count: %w", err)
		}
		out[qid] = append(out[qid], c)
	}
	return out, rows.Err()
}
