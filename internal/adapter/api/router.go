package api

import (
	"log/slog"
	"net/http"

	"github.com/promogate/promogate/internal/adapter/api/handler"
	"github.com/promogate/promogate/internal/adapter/api/middleware"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/pkg/config"
	"github.com/promogate/promogate/internal/usecase"
)

// NewPublicRouter creates and configures the visitor-facing HTTP router.
// Every route except the health check runs behind tenant resolution and the
// general public rate limit; the claim route additionally applies its own
// two-phase issuance limit inside the handler.
func NewPublicRouter(
	cfg *config.Config,
	logger *slog.Logger,
	resolver *usecase.TenantResolver,
	limiter *usecase.RateLimiter,
	public *handler.PublicHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /{slug}/offers", public.ListOffers)
	mux.HandleFunc("GET /{slug}/survey", public.GetSurvey)
	mux.HandleFunc("POST /{slug}/survey", public.SubmitSurvey)
	mux.HandleFunc("POST /{slug}/offers/{offerID}/claim", public.Claim)
	mux.HandleFunc("POST /{slug}/redeem", public.Redeem)

	publicPolicy := domain.RatePolicy{MaxRequests: cfg.PublicRateLimit, Window: cfg.PublicRateWindow}

	var h http.Handler = mux
	h = middleware.RateLimit(limiter, publicPolicy, middleware.PublicKey)(h)
	h = middleware.ResolveTenant(resolver, cfg.ApexDomain, cfg.Reserved(), logger)(h)
	h = middleware.Logging(logger)(h)
	return h
}
