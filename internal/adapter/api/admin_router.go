package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/promogate/promogate/internal/adapter/api/handler"
	"github.com/promogate/promogate/internal/adapter/api/middleware"
	"github.com/promogate/promogate/internal/domain"
)

// DepCheck probes one backing dependency for the readiness endpoint.
type DepCheck func(ctx context.Context) error

// NewAdminRouter creates and configures the HTTP router for the staff API and
// the operational endpoints. It listens on its own address; tenant identity
// comes from the staff key, not the host or path.
func NewAdminRouter(
	logger *slog.Logger,
	staffKeys domain.StaffKeyRepository,
	admin *handler.AdminHandler,
	deps map[string]DepCheck,
) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /healthz/deps", depsHandler(deps))

	auth := middleware.StaffAuth(staffKeys, logger)
	manage := middleware.RequireManage

	// Reads are open to any staff role.
	mux.Handle("GET /admin/offers", auth(http.HandlerFunc(admin.ListOffers)))
	mux.Handle("GET /admin/questions", auth(http.HandlerFunc(admin.ListQuestions)))
	mux.Handle("GET /admin/grants", auth(http.HandlerFunc(admin.ListGrants)))
	mux.Handle("GET /admin/stats", auth(http.HandlerFunc(admin.OfferStats)))
	mux.Handle("GET /admin/optins", auth(http.HandlerFunc(admin.ListOptIns)))

	// Mutations require the admin role.
	mux.Handle("POST /admin/offers", auth(manage(http.HandlerFunc(admin.CreateOffer))))
	mux.Handle("PUT /admin/offers/{offerID}", auth(manage(http.HandlerFunc(admin.UpdateOffer))))
	mux.Handle("DELETE /admin/offers/{offerID}", auth(manage(http.HandlerFunc(admin.DeleteOffer))))

	mux.Handle("POST /admin/questions", auth(manage(http.HandlerFunc(admin.CreateQuestion))))
	mux.Handle("PUT /admin/questions/{questionID}", auth(manage(http.HandlerFunc(admin.UpdateQuestion))))
	mux.Handle("DELETE /admin/questions/{questionID}", auth(manage(http.HandlerFunc(admin.DeleteQuestion))))

	mux.Handle("POST /admin/grants/revoke", auth(manage(http.HandlerFunc(admin.RevokeGrant))))

	mux.Handle("PUT /admin/tenant/active", auth(manage(http.HandlerFunc(admin.SetActive))))
	mux.Handle("PUT /admin/tenant/theme", auth(manage(http.HandlerFunc(admin.UpdateTheme))))
	mux.Handle("PUT /admin/tenant/logo", auth(manage(http.HandlerFunc(admin.UploadLogo))))

	return middleware.Logging(logger)(mux)
}

// depsHandler reports per-dependency readiness with a bounded probe.
func depsHandler(deps map[string]DepCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(deps))
		for name, check := range deps {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	}
}
