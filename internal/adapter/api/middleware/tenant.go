package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/usecase"
)

type tenantContextKey struct{}

// WithTenant stores the resolved tenant on the context.
func WithTenant(ctx context.Context, tenant *domain.Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext returns the tenant stored by the resolution middleware.
func TenantFromContext(ctx context.Context) (*domain.Tenant, bool) {
	tenant, ok := ctx.Value(tenantContextKey{}).(*domain.Tenant)
	return tenant, ok
}

// ResolveTenant is a middleware factory that binds every public request to a
// tenant before routing. A tenant subdomain takes precedence; without one the
// first path segment is treated as the slug. Subdomain requests get the slug
// segment prepended to the path so both forms match the same route patterns.
//
// Inactive tenants read as absent on the public surface; staff flows go
// through the admin listener, which resolves tenants without the filter.
func ResolveTenant(resolver *usecase.TenantResolver, apexDomain string, reserved []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			subdomain := usecase.SubdomainFromHost(r.Host, apexDomain, reserved)
			identifier := subdomain
			if identifier == "" {
				identifier = firstPathSegment(r.URL.Path)
			}
			if identifier == "" {
				writeError(w, http.StatusNotFound, "tenant not found")
				return
			}

			tenant, err := resolver.Resolve(r.Context(), identifier)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeError(w, http.StatusNotFound, "tenant not found")
					return
				}
				logger.Error("tenant resolution failed", "identifier", identifier, "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !tenant.Active {
				writeError(w, http.StatusNotFound, "tenant not found")
				return
			}

			r = r.WithContext(WithTenant(r.Context(), tenant))
			if subdomain != "" {
				r.URL.Path = "/" + tenant.Slug + r.URL.Path
			}
			next.ServeHTTP(w, r)
		})
	}
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.Index(path, "/"); idx != -1 {
		path = path[:idx]
	}
	return strings.ToLower(path)
}
