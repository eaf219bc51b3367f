package handler

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/surveystack/internal/domain"
)

// TenantResponse is the public view of the current site.
type TenantResponse struct {
	Tenant *domain.TenantRecord `json:"tenant"`
	Config domain.TenantConfig  `json:"config"`
}

// TenantHandler serves the resolved tenant for the request host.
type TenantHandler struct {
	logger *slog.Logger
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(logger *slog.Logger) *TenantHandler {
	return &TenantHandler{logger: logger}
}

// GetTenant handles GET /api/tenant.
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantOrFail(w, r, h.logger)
	if !ok {
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, TenantResponse{Tenant: tc.Record, Config: tc.Config})
}
