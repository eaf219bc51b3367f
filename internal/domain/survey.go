package domain

import (
	"time"

	"github.com/google/uuid"
)

// Question types.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionRating         = "rating"
	QuestionRanking        = "ranking"
	QuestionText           = "text"
)

// SurveyQuestion is one question of a tenant's survey.
type SurveyQuestion struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"-"`
	Order    int       `json:"order"`
	Text     string    `json:"text"`
	Type     string    `json:"type"`
	Options  []string  `json:"options"`
}

// Subscriber is a newsletter signup scoped to one tenant.
type Subscriber struct {
	TenantID     uuid.UUID `json:"-"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	ReferralCode string    `json:"referral_code"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

// SurveyResponse is one visitor's answer to one question. A later answer from
// the same session to the same question replaces the earlier one.
type SurveyResponse struct {
	TenantID   uuid.UUID `json:"-"`
	SessionID  string    `json:"session_id"`
	QuestionID int64     `json:"question_id"`
	Answer     string    `json:"answer"`
}

// AnswerCount is how many sessions gave one answer to a question.
type AnswerCount struct {
	Answer string `json:"answer"`
	Count  int64  `json:"count"`
}

// AnswerShare is an AnswerCount with its rounded percentage of the question total.
type AnswerShare struct {
	AnswerCount
	Percent int `json:"pct"`
}

// QuestionResult aggregates the answers to one non-text question.
type QuestionResult struct {
	QuestionID int64         `json:"question_id"`
	Question   string        `json:"question"`
	Type       string        `json:"type"`
	Total      int64         `json:"total"`
	Breakdown  []AnswerShare `json:"breakdown"`
}
