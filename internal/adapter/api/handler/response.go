package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/surveystack/internal/adapter/api/middleware"
	"github.com/V4T54L/surveystack/internal/domain"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError maps domain errors to status codes. Unknown errors are
// logged and reported as a generic 500.
func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var code int
	switch {
	case errors.Is(err, domain.ErrInvalidHostname),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrUnknownFeature),
		errors.Is(err, domain.ErrMissingFields):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrFeatureDisabled),
		errors.Is(err, domain.ErrQuestionNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error("store unavailable", "error", err)
		respondWithJSON(w, logger, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
		return
	default:
		logger.Error("request failed", "error", err)
		respondWithJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	respondWithJSON(w, logger, code, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// tenantOrFail fetches the tenant set by middleware.Tenant.
func tenantOrFail(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*middleware.TenantContext, bool) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		logger.Error("tenant missing from request context", "path", r.URL.Path)
		respondWithJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
	return tc, ok
}
