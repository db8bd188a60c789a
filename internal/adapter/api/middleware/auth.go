package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/promogate/promogate/internal/domain"
)

// StaffKeyHeader carries the staff API key on admin requests.
const StaffKeyHeader = "X-Staff-Key"

type staffContextKey struct{}

// WithStaff stores the authenticated staff identity on the context.
func WithStaff(ctx context.Context, identity *domain.StaffIdentity) context.Context {
	return context.WithValue(ctx, staffContextKey{}, identity)
}

// StaffFromContext returns the identity stored by the auth middleware.
func StaffFromContext(ctx context.Context) (*domain.StaffIdentity, bool) {
	identity, ok := ctx.Value(staffContextKey{}).(*domain.StaffIdentity)
	return identity, ok
}

// StaffAuth is a middleware factory that authenticates admin requests by the
// X-Staff-Key header. The key determines the tenant; admin routes carry no
// slug.
func StaffAuth(repo domain.StaffKeyRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(StaffKeyHeader)
			if key == "" {
				logger.Warn("staff key missing from request", "remote_addr", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "staff key required")
				return
			}

			identity, err := repo.Identify(r.Context(), key)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					logger.Warn("invalid staff key provided", "remote_addr", r.RemoteAddr)
					writeError(w, http.StatusUnauthorized, "invalid staff key")
					return
				}
				logger.Error("failed to validate staff key", "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), identity)))
		})
	}
}

// RequireManage gates mutating admin routes on the admin role.
func RequireManage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := StaffFromContext(r.Context())
		if !ok || !identity.CanManage() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
