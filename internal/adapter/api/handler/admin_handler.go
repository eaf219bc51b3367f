package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/V4T54L/surveystack/internal/usecase"
)

// AdminHandler handles operator requests for tenants and the analytics pipeline.
type AdminHandler struct {
	tenants  *usecase.AdminTenantUseCase
	pipeline *usecase.AdminPipelineUseCase
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. pipeline may be nil when no
// analytics stream is configured.
func NewAdminHandler(tenants *usecase.AdminTenantUseCase, pipeline *usecase.AdminPipelineUseCase, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{tenants: tenants, pipeline: pipeline, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetTenant handles GET /api/admin/tenants/{hostname}.
func (h *AdminHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	rec, err := h.tenants.Get(r.Context(), r.PathValue("hostname"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, rec)
}

// UpdateFeatures handles PATCH /api/admin/tenants/{hostname}/features.
// The body is a partial map of feature name to enabled flag.
func (h *AdminHandler) UpdateFeatures(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]bool
	if err := decodeJSON(w, r, &overrides); err != nil {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	rec, err := h.tenants.UpdateFeatures(r.Context(), r.PathValue("hostname"), overrides)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, rec)
}

// PipelineStatus handles GET /api/admin/analytics.
func (h *AdminHandler) PipelineStatus(w http.ResponseWriter, r *http.Request) {
	if !h.pipelineEnabled(w) {
		return
	}
	status, err := h.pipeline.Status(r.Context())
	if err != nil {
		h.logger.Error("failed to get pipeline status", "error", err)
		respondWithJSON(w, h.logger, http.StatusBadGateway, errorResponse{Error: "analytics stream unavailable"})
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, status)
}

// ClaimEvents handles POST /api/admin/analytics/groups/{group}/claim.
func (h *AdminHandler) ClaimEvents(w http.ResponseWriter, r *http.Request) {
	if !h.pipelineEnabled(w) {
		return
	}
	var payload struct {
		Consumer    string `json:"consumer"`
		MinIdleTime string `json:"min_idle_time"`
		Count       int    `json:"count"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	minIdle, err := time.ParseDuration(payload.MinIdleTime)
	if err != nil {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "invalid min_idle_time format"})
		return
	}
	if payload.Consumer == "" {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "consumer is required"})
		return
	}

	claimed, err := h.pipeline.Claim(r.Context(), r.PathValue("group"), payload.Consumer, minIdle, payload.Count)
	if err != nil {
		h.logger.Error("failed to claim events", "error", err)
		respondWithJSON(w, h.logger, http.StatusBadGateway, errorResponse{Error: "analytics stream unavailable"})
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]int{"claimed": len(claimed)})
}

// TrimStream handles POST /api/admin/analytics/trim?maxlen=N.
func (h *AdminHandler) TrimStream(w http.ResponseWriter, r *http.Request) {
	if !h.pipelineEnabled(w) {
		return
	}
	maxLen, err := strconv.ParseInt(r.URL.Query().Get("maxlen"), 10, 64)
	if err != nil || maxLen <= 0 {
		respondWithJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: "maxlen must be a positive integer"})
		return
	}
	removed, err := h.pipeline.Trim(r.Context(), maxLen)
	if err != nil {
		h.logger.Error("failed to trim stream", "error", err)
		respondWithJSON(w, h.logger, http.StatusBadGateway, errorResponse{Error: "analytics stream unavailable"})
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]int64{"trimmed": removed})
}

func (h *AdminHandler) pipelineEnabled(w http.ResponseWriter) bool {
	if h.pipeline != nil {
		return true
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(errorResponse{Error: "analytics pipeline not configured"})
	return false
}
