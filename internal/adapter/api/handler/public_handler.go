package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/adapter/api/middleware"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/usecase"
)

// PublicHandler serves the visitor-facing surface: offer browsing, the survey
// gate, coupon claims and redemptions.
type PublicHandler struct {
	catalog     *usecase.CatalogUseCase
	survey      *usecase.SurveyUseCase
	issue       *usecase.IssueGrantUseCase
	redeem      *usecase.RedeemGrantUseCase
	limiter     *usecase.RateLimiter
	issuePolicy domain.RatePolicy
	logger      *slog.Logger
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(
	catalog *usecase.CatalogUseCase,
	survey *usecase.SurveyUseCase,
	issue *usecase.IssueGrantUseCase,
	redeem *usecase.RedeemGrantUseCase,
	limiter *usecase.RateLimiter,
	issuePolicy domain.RatePolicy,
	logger *slog.Logger,
) *PublicHandler {
	return &PublicHandler{
		catalog:     catalog,
		survey:      survey,
		issue:       issue,
		redeem:      redeem,
		limiter:     limiter,
		issuePolicy: issuePolicy,
		logger:      logger.With("component", "public_handler"),
	}
}

// ListOffers handles GET /{slug}/offers.
func (h *PublicHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, domain.ErrNotFound)
		return
	}

	offers, err := h.catalog.ActiveOffers(r.Context(), tenant)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

// GetSurvey handles GET /{slug}/survey.
func (h *PublicHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, domain.ErrNotFound)
		return
	}

	questions, err := h.survey.Questions(r.Context(), tenant)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

type submitSurveyRequest struct {
	Email   string                `json:"email,omitempty"`
	Answers []usecase.AnswerInput `json:"answers"`
}

// SubmitSurvey handles POST /{slug}/survey.
func (h *PublicHandler) SubmitSurvey(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, domain.ErrNotFound)
		return
	}

	var in submitSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}

	sessionID, err := h.survey.Submit(r.Context(), tenant, optionalString(in.Email), in.Answers)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"session_id": sessionID})
}

type claimRequest struct {
	Email string `json:"email,omitempty"`
}

// Claim handles POST /{slug}/offers/{offerID}/claim. The rate limit is
// two-phase: quota is checked up front but only consumed after a successful
// issuance, so rejected attempts do not burn the caller's budget. Claiming
// the same offer twice returns the same coupon code.
func (h *PublicHandler) Claim(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, domain.ErrNotFound)
		return
	}

	offerID, err := uuid.Parse(r.PathValue("offerID"))
	if err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid offer id", domain.ErrValidation))
		return
	}

	var in claimRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
			return
		}
	}
	email := optionalString(strings.ToLower(strings.TrimSpace(in.Email)))

	// Recipients identified by email must pass the survey gate first. Tenants
	// without a survey have no gate to pass.
	if email != nil {
		questions, err := h.survey.Questions(r.Context(), tenant)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		if len(questions) > 0 {
			optedIn, err := h.survey.HasOptIn(r.Context(), tenant, *email)
			if err != nil {
				respondError(w, h.logger, err)
				return
			}
			if !optedIn {
				respondError(w, h.logger, fmt.Errorf("%w: complete the survey before claiming", domain.ErrValidation))
				return
			}
		}
	}

	key := claimRateKey(tenant, email, r)
	decision := h.limiter.Check(r.Context(), key, h.issuePolicy)
	middleware.SetRateHeaders(w, decision)
	if !decision.Permitted() {
		w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter().Seconds())+1))
		respondError(w, h.logger, fmt.Errorf("%w: too many claims", domain.ErrRateLimited))
		return
	}

	grant, err := h.issue.Issue(r.Context(), tenant, offerID, email)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.limiter.Record(r.Context(), key, h.issuePolicy)

	respondJSON(w, http.StatusOK, map[string]any{"grant": grant})
}

type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem handles POST /{slug}/redeem.
func (h *PublicHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, domain.ErrNotFound)
		return
	}

	var in redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		respondError(w, h.logger, fmt.Errorf("%w: coupon code is required", domain.ErrValidation))
		return
	}

	grant, err := h.redeem.Redeem(r.Context(), tenant, code)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"grant": grant})
}

// claimRateKey prefers the recipient email so one person cannot rotate IPs,
// falling back to the client address for anonymous claims.
func claimRateKey(tenant *domain.Tenant, email *string, r *http.Request) string {
	identity := middleware.ClientIP(r)
	if email != nil {
		identity = *email
	}
	return "rl:issue:" + tenant.ID.String() + ":" + identity
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
