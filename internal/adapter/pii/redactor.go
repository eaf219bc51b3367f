package pii

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/V4T54L/surveystack/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor removes visitor PII from analytics event payloads before they are buffered.
type Redactor struct {
	fieldsToRedact map[string]struct{}
	logger         *slog.Logger
}

// NewRedactor creates a Redactor for the given top-level field names.
// Names are matched case-insensitively; blank names are ignored.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Redact modifies the event's Data in place.
// It returns an error if the payload is not a JSON object.
func (r *Redactor) Redact(event *domain.AnalyticsEvent) error {
	if len(r.fieldsToRedact) == 0 || len(event.Data) == 0 {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal(event.Data, &data); err != nil {
		r.logger.Warn("failed to unmarshal event data for PII redaction", "error", err, "event_id", event.ID)
		return err
	}

	redacted := false
	for field := range data {
		if _, ok := r.fieldsToRedact[strings.ToLower(field)]; ok {
			data[field] = RedactedPlaceholder
			redacted = true
		}
	}

	if redacted {
		event.PIIRedacted = true
		modified, err := json.Marshal(data)
		if err != nil {
			r.logger.Error("failed to marshal event data after PII redaction", "error", err, "event_id", event.ID)
			return err
		}
		event.Data = modified
	}

	return nil
}
