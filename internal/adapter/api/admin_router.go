package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/surveystack/internal/adapter/api/handler"
	"github.com/V4T54L/surveystack/internal/adapter/api/middleware"
	"github.com/V4T54L/surveystack/internal/usecase"
)

// NewAdminRouter creates the operator router: health, metrics, tenant
// administration, analytics pipeline tools and the live activity feed.
// activity and pipeline may be nil.
func NewAdminRouter(
	logger *slog.Logger,
	password string,
	gatherer prometheus.Gatherer,
	tenants *usecase.AdminTenantUseCase,
	pipeline *usecase.AdminPipelineUseCase,
	activity *handler.ActivityBroker,
) http.Handler {
	adminHandler := handler.NewAdminHandler(tenants, pipeline, logger)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/admin/tenants/{hostname}", adminHandler.GetTenant)
	protected.HandleFunc("PATCH /api/admin/tenants/{hostname}/features", adminHandler.UpdateFeatures)
	protected.HandleFunc("GET /api/admin/analytics", adminHandler.PipelineStatus)
	protected.HandleFunc("POST /api/admin/analytics/groups/{group}/claim", adminHandler.ClaimEvents)
	protected.HandleFunc("POST /api/admin/analytics/trim", adminHandler.TrimStream)
	if activity != nil {
		protected.Handle("GET /api/admin/activity", activity)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", adminHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/api/admin/", middleware.AdminAuth(password, logger)(protected))

	return middleware.Logging(logger)(mux)
}
