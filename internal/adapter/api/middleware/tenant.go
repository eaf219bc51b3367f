package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/surveystack/internal/domain"
)

// TenantResolver maps a request host to its tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, hostname string) (*domain.TenantRecord, error)
	Config(hostname string) domain.TenantConfig
}

// EventTracker records analytics events without blocking the request.
type EventTracker interface {
	TrackAsync(ctx context.Context, event domain.AnalyticsEvent)
}

// TenantContext is the read-only tenant view handed to every handler.
type TenantContext struct {
	Record *domain.TenantRecord
	Config domain.TenantConfig
}

type tenantKey struct{}

// SessionHeader carries the visitor's session id, if the site sets one.
const SessionHeader = "X-Session-ID"

// Tenant resolves r.Host for every request and stores the result in the request
// context. Each resolved request also emits a page_view event when tracker is set.
func Tenant(resolver TenantResolver, tracker EventTracker, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "tenant_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, err := resolver.Resolve(r.Context(), r.Host)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrInvalidHostname):
				http.Error(w, "Bad Request: missing host", http.StatusBadRequest)
				return
			case errors.Is(err, domain.ErrStoreUnavailable):
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				logger.Debug("request cancelled during tenant resolution", "host", r.Host)
				return
			default:
				logger.Error("unexpected tenant resolution error", "host", r.Host, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tc := &TenantContext{Record: rec, Config: resolver.Config(rec.Hostname)}
			if tracker != nil {
				tracker.TrackAsync(r.Context(), domain.AnalyticsEvent{
					TenantID:  rec.ID,
					Hostname:  rec.Hostname,
					Event:     domain.EventPageView,
					SessionID: r.Header.Get(SessionHeader),
					Path:      r.URL.Path,
					Referrer:  r.Referer(),
					UserAgent: r.UserAgent(),
				})
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
		})
	}
}

// WithTenant returns a copy of ctx carrying tc.
func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, tc)
}

// TenantFrom returns the tenant stored by the Tenant middleware.
func TenantFrom(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(tenantKey{}).(*TenantContext)
	return tc, ok && tc != nil
}
