package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/V4T54L/surveystack/internal/adapter/api/middleware"
	"github.com/V4T54L/surveystack/internal/domain"
	"github.com/V4T54L/surveystack/internal/usecase"
)

// SurveyHandler serves the tenant's survey, its answers and completions.
type SurveyHandler struct {
	uc     *usecase.SurveyUseCase
	logger *slog.Logger
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(uc *usecase.SurveyUseCase, logger *slog.Logger) *SurveyHandler {
	return &SurveyHandler{uc: uc, logger: logger}
}

// GetSurvey handles GET /api/survey.
func (h *SurveyHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantOrFail(w, r, h.logger)
	if !ok {
		return
	}
	questions, err := h.uc.Questions(r.Context(), tc.Record, tc.Config)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]any{
		"title":     tc.Record.Title,
		"questions": questions,
	})
}

// Complete handles POST /api/complete. The body is optional.
func (h *SurveyHandler) Complete(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantOrFail(w, r, h.logger)
	if !ok {
		return
	}
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(w, r, &payload); err != nil && !errors.Is(err, io.EOF) {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if payload.SessionID == "" {
		payload.SessionID = r.Header.Get(middleware.SessionHeader)
	}
	if err := h.uc.Complete(r.Context(), tc.Record, payload.SessionID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

// Answer handles POST /api/response. The answer may be any JSON value;
// strings are stored as-is and anything else as its JSON text.
func (h *SurveyHandler) Answer(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantOrFail(w, r, h.logger)
	if !ok {
		return
	}
	var payload struct {
		SessionID  string          `json:"session_id"`
		QuestionID int64           `json:"question_id"`
		Answer     json.RawMessage `json:"answer"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if payload.SessionID == "" {
		payload.SessionID = r.Header.Get(middleware.SessionHeader)
	}
	answer, ok := answerText(payload.Answer)
	if !ok {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: domain.ErrMissingFields.Error()})
		return
	}

	err := h.uc.Answer(r.Context(), tc.Record, domain.SurveyResponse{
		SessionID:  payload.SessionID,
		QuestionID: payload.QuestionID,
		Answer:     answer,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

// answerText reports false for an absent or null answer.
func answerText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

// GetResults handles GET /api/results.
func (h *SurveyHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantOrFail(w, r, h.logger)
	if !ok {
		return
	}
	results, err := h.uc.Results(r.Context(), tc.Record)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]any{
		"hostname": tc.Record.Hostname,
		"title":    tc.Record.Title,
		"results":  results,
	})
}
