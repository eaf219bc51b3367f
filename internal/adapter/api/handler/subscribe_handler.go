package handler

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/surveystack/internal/adapter/api/middleware"
	"github.com/V4T54L/surveystack/internal/usecase"
)

// SubscribeHandler accepts newsletter signups.
type SubscribeHandler struct {
	uc     *usecase.SubscribeUseCase
	logger *slog.Logger
}

// NewSubscribeHandler creates a new SubscribeHandler.
func NewSubscribeHandler(uc *usecase.SubscribeUseCase, logger *slog.Logger) *SubscribeHandler {
	return &SubscribeHandler{uc: uc, logger: logger}
}

// Subscribe handles POST /api/subscribe.
func (h *SubscribeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantOrFail(w, r, h.logger)
	if !ok {
		return
	}
	var req usecase.SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionHeader)
	}

	sub, created, err := h.uc.Subscribe(r.Context(), tc.Record, req)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if !created {
		respondWithJSON(w, h.logger, http.StatusOK, map[string]any{"success": true, "created": false})
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, map[string]any{
		"success":       true,
		"created":       true,
		"referral_code": sub.ReferralCode,
	})
}
