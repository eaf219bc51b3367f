package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Analytics event names.
const (
	EventPageView       = "page_view"
	EventSignup         = "signup"
	EventSurveyComplete = "survey_complete"
)

// AnalyticsEvent is a single tracked interaction on a tenant site.
type AnalyticsEvent struct {
	ID              string          `json:"event_id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	Hostname        string          `json:"hostname"`
	Event           string          `json:"event"`
	SessionID       string          `json:"session_id,omitempty"`
	Path            string          `json:"path,omitempty"`
	Referrer        string          `json:"referrer,omitempty"`
	UserAgent       string          `json:"user_agent,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
	Data            json.RawMessage `json:"data,omitempty"`
	PIIRedacted     bool            `json:"pii_redacted,omitempty"`
	StreamMessageID string          `json:"-"`
}
