package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/surveystack/internal/adapter/api/handler"
	"github.com/V4T54L/surveystack/internal/adapter/api/middleware"
	"github.com/V4T54L/surveystack/internal/usecase"
)

// NewRouter creates the public HTTP router served on every tenant hostname.
// All /api/ routes run behind tenant resolution.
func NewRouter(
	logger *slog.Logger,
	resolver middleware.TenantResolver,
	tracker middleware.EventTracker,
	survey *usecase.SurveyUseCase,
	subscribe *usecase.SubscribeUseCase,
) http.Handler {
	tenantHandler := handler.NewTenantHandler(logger)
	surveyHandler := handler.NewSurveyHandler(survey, logger)
	subscribeHandler := handler.NewSubscribeHandler(subscribe, logger)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/tenant", tenantHandler.GetTenant)
	api.HandleFunc("GET /api/survey", surveyHandler.GetSurvey)
	api.HandleFunc("POST /api/response", surveyHandler.Answer)
	api.HandleFunc("GET /api/results", surveyHandler.GetResults)
	api.HandleFunc("POST /api/complete", surveyHandler.Complete)
	api.HandleFunc("POST /api/subscribe", subscribeHandler.Subscribe)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Tenant(resolver, tracker, logger)(api))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return middleware.Logging(logger)(mux)
}
