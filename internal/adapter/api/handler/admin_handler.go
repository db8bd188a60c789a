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

// AdminHandler serves the staff dashboard API. The tenant comes from the
// authenticated staff key, never from the URL.
type AdminHandler struct {
	directory domain.TenantDirectory
	admin     *usecase.AdminUseCase
	resolver  *usecase.TenantResolver
	logger    *slog.Logger
	maxUpload int64
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(directory domain.TenantDirectory, admin *usecase.AdminUseCase, resolver *usecase.TenantResolver, logger *slog.Logger, maxUpload int64) *AdminHandler {
	return &AdminHandler{
		directory: directory,
		admin:     admin,
		resolver:  resolver,
		logger:    logger.With("component", "admin_handler"),
		maxUpload: maxUpload,
	}
}

// tenant loads the tenant behind the request's staff identity. Deactivated
// tenants stay reachable here; staff need to manage (and reactivate) them.
func (h *AdminHandler) tenant(r *http.Request) (*domain.Tenant, error) {
	identity, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return h.directory.GetByID(r.Context(), identity.TenantID)
}

// invalidateResolution drops the tenant's cached lookups after a change that
// affects resolution or branding.
func (h *AdminHandler) invalidateResolution(tenant *domain.Tenant) {
	h.resolver.Invalidate(tenant.Slug)
	if tenant.Subdomain != nil {
		h.resolver.Invalidate(*tenant.Subdomain)
	}
}

// ListOffers handles GET /admin/offers.
func (h *AdminHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	offers, err := h.admin.ListOffers(r.Context(), tenant)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

// CreateOffer handles POST /admin/offers.
func (h *AdminHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var in usecase.OfferInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	offer, err := h.admin.CreateOffer(r.Context(), tenant, in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"offer": offer})
}

// UpdateOffer handles PUT /admin/offers/{offerID}.
func (h *AdminHandler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("offerID"))
	if err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid offer id", domain.ErrValidation))
		return
	}
	var in usecase.OfferInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	offer, err := h.admin.UpdateOffer(r.Context(), tenant, id, in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"offer": offer})
}

// DeleteOffer handles DELETE /admin/offers/{offerID}.
func (h *AdminHandler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("offerID"))
	if err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid offer id", domain.ErrValidation))
		return
	}
	if err := h.admin.DeleteOffer(r.Context(), tenant, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListQuestions handles GET /admin/questions.
func (h *AdminHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	questions, err := h.admin.ListQuestions(r.Context(), tenant)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// CreateQuestion handles POST /admin/questions.
func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var in usecase.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	question, err := h.admin.CreateQuestion(r.Context(), tenant, in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"question": question})
}

// UpdateQuestion handles PUT /admin/questions/{questionID}.
func (h *AdminHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("questionID"))
	if err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid question id", domain.ErrValidation))
		return
	}
	var in usecase.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	question, err := h.admin.UpdateQuestion(r.Context(), tenant, id, in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"question": question})
}

// DeleteQuestion handles DELETE /admin/questions/{questionID}.
func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("questionID"))
	if err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid question id", domain.ErrValidation))
		return
	}
	if err := h.admin.DeleteQuestion(r.Context(), tenant, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGrants handles GET /admin/grants.
func (h *AdminHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, h.logger, fmt.Errorf("%w: invalid limit", domain.ErrValidation))
			return
		}
		limit = n
	}
	grants, err := h.admin.ListGrants(r.Context(), tenant, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

type revokeRequest struct {
	Code string `json:"code"`
}

// RevokeGrant handles POST /admin/grants/revoke.
func (h *AdminHandler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var in revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		respondError(w, h.logger, fmt.Errorf("%w: coupon code is required", domain.ErrValidation))
		return
	}
	grant, err := h.admin.RevokeGrant(r.Context(), tenant, code)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"grant": grant})
}

// OfferStats handles GET /admin/stats.
func (h *AdminHandler) OfferStats(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	stats, err := h.admin.OfferStats(r.Context(), tenant)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// ListOptIns handles GET /admin/optins.
func (h *AdminHandler) ListOptIns(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	optIns, err := h.admin.ListOptIns(r.Context(), tenant)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"opt_ins": optIns})
}

type activateRequest struct {
	Active bool `json:"active"`
}

// SetActive handles PUT /admin/tenant/active.
func (h *AdminHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var in activateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	if err := h.admin.SetTenantActive(r.Context(), tenant, in.Active); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidateResolution(tenant)
	respondJSON(w, http.StatusOK, map[string]any{"active": in.Active})
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// UpdateTheme handles PUT /admin/tenant/theme.
func (h *AdminHandler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var in themeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
		return
	}
	if err := h.admin.UpdateTheme(r.Context(), tenant, in.Theme); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidateResolution(tenant)
	respondJSON(w, http.StatusOK, map[string]any{"theme": in.Theme})
}

// UploadLogo handles PUT /admin/tenant/logo. The raw image travels in the
// request body; its type comes from the Content-Type header.
func (h *AdminHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	defer body.Close()

	url, err := h.admin.UploadLogo(r.Context(), tenant, r.Header.Get("Content-Type"), r.ContentLength, body)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidateResolution(tenant)
	respondJSON(w, http.StatusOK, map[string]any{"logo_url": url})
}
