package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/adapter/api/handler"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/domain/mocks"
	"github.com/promogate/promogate/internal/pkg/config"
	"github.com/promogate/promogate/internal/usecase"
)

type publicFixture struct {
	router http.Handler
	tenant domain.Tenant
	offer  domain.Offer
	scope  *mocks.MockScope
}

func newPublicFixture(t *testing.T, maxRedemptions int) *publicFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	subdomain := "acme"
	tenant := domain.Tenant{ID: uuid.New(), Slug: "acme", Subdomain: &subdomain, Name: "Acme", Active: true}
	dormant := domain.Tenant{ID: uuid.New(), Slug: "dormant", Name: "Dormant", Active: false}
	dir := &mocks.MockTenantDirectory{Tenants: []domain.Tenant{tenant, dormant}}

	scope := mocks.NewMockScope(tenant.ID)
	offer := domain.Offer{
		ID: uuid.New(), TenantID: tenant.ID, Title: "Free Coffee", Discount: "100%",
		MaxRedemptions: maxRedemptions, Active: true, CreatedAt: time.Now().UTC(),
	}
	scope.OfferRepo.Offers = append(scope.OfferRepo.Offers, offer)
	scope.SurveyRepo.Questions = append(scope.SurveyRepo.Questions, domain.Question{
		ID: uuid.New(), TenantID: tenant.ID, Prompt: "How did you hear about us?",
		Kind: domain.QuestionText, Position: 1, Active: true,
	})

	newScope := func(uuid.UUID) domain.TenantScope { return scope }

	cfg := &config.Config{
		ApexDomain:         "example.com",
		ReservedSubdomains: "www,admin,api",
		PublicRateLimit:    100,
		PublicRateWindow:   time.Minute,
		IssueRateLimit:     10,
		IssueRateWindow:    time.Minute,
	}

	resolver := usecase.NewTenantResolver(dir, logger, time.Minute, nil)
	limiter := usecase.NewRateLimiter(&mocks.MockRateLimitStore{}, logger, nil)
	catalog := usecase.NewCatalogUseCase(newScope)
	survey := usecase.NewSurveyUseCase(newScope, logger)
	issue := usecase.NewIssueGrantUseCase(newScope, nil, logger, nil, 10, 0)
	redeem := usecase.NewRedeemGrantUseCase(newScope, logger, nil)

	issuePolicy := domain.RatePolicy{MaxRequests: cfg.IssueRateLimit, Window: cfg.IssueRateWindow}
	public := handler.NewPublicHandler(catalog, survey, issue, redeem, limiter, issuePolicy, logger)

	return &publicFixture{
		router: NewPublicRouter(cfg, logger, resolver, limiter, public),
		tenant: tenant,
		offer:  offer,
		scope:  scope,
	}
}

func (f *publicFixture) do(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, url, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v (body %s)", err, rec.Body.String())
	}
}

func TestPublicRouter_ClaimAndRedeemFlow(t *testing.T) {
	f := newPublicFixture(t, 1)
	base := "http://acme.example.com"

	// Browse offers through the tenant subdomain.
	rec := f.do(t, http.MethodGet, base+"/offers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("offers: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var offersResp struct {
		Offers []domain.Offer `json:"offers"`
	}
	decodeData(t, rec, &offersResp)
	if len(offersResp.Offers) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(offersResp.Offers))
	}

	// The survey gate blocks claims until the visitor opts in.
	claimURL := fmt.Sprintf("%s/offers/%s/claim", base, f.offer.ID)
	rec = f.do(t, http.MethodPost, claimURL, map[string]string{"email": "visitor@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("gated claim: expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}

	// Fetch and answer the survey.
	rec = f.do(t, http.MethodGet, base+"/survey", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("survey: expected 200, got %d", rec.Code)
	}
	var surveyResp struct {
		Questions []domain.Question `json:"questions"`
	}
	decodeData(t, rec, &surveyResp)
	if len(surveyResp.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(surveyResp.Questions))
	}

	rec = f.do(t, http.MethodPost, base+"/survey", map[string]any{
		"email": "visitor@example.com",
		"answers": []map[string]string{
			{"question_id": surveyResp.Questions[0].ID.String(), "answer": "a friend"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("survey submit: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	// First claim issues a grant.
	rec = f.do(t, http.MethodPost, claimURL, map[string]string{"email": "visitor@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var claimResp struct {
		Grant domain.Grant `json:"grant"`
	}
	decodeData(t, rec, &claimResp)
	code := claimResp.Grant.Code
	if code == "" {
		t.Fatal("expected a coupon code")
	}

	// Claiming again returns the same code.
	rec = f.do(t, http.MethodPost, claimURL, map[string]string{"email": "visitor@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat claim: expected 200, got %d", rec.Code)
	}
	decodeData(t, rec, &claimResp)
	if claimResp.Grant.Code != code {
		t.Fatalf("expected idempotent claim, got %q then %q", code, claimResp.Grant.Code)
	}

	// Redeem once; with max_redemptions 1 the grant flips to redeemed.
	rec = f.do(t, http.MethodPost, base+"/redeem", map[string]string{"code": code})
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var redeemResp struct {
		Grant domain.Grant `json:"grant"`
	}
	decodeData(t, rec, &redeemResp)
	if redeemResp.Grant.Status != domain.GrantRedeemed {
		t.Fatalf("expected redeemed status, got %s", redeemResp.Grant.Status)
	}

	// A second redemption is rejected.
	rec = f.do(t, http.MethodPost, base+"/redeem", map[string]string{"code": code})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second redeem: expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestPublicRouter_TenantResolution(t *testing.T) {
	f := newPublicFixture(t, 1)

	t.Run("path slug resolves like a subdomain", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "http://example.com/acme/offers", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown tenant is 404", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "http://ghost.example.com/offers", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("inactive tenant is hidden from the public surface", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "http://example.com/dormant/offers", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("reserved subdomain does not resolve", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "http://www.example.com/offers", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("health check bypasses resolution", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "http://example.com/healthz", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestPublicRouter_RateLimitHeaders(t *testing.T) {
	f := newPublicFixture(t, 1)

	rec := f.do(t, http.MethodGet, "http://acme.example.com/offers", nil)
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining header")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected X-RateLimit-Reset header")
	}
}
