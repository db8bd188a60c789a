package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/domain"
)

// allowedImageTypes maps accepted upload content types to file extensions.
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// AdminUseCase implements the dashboard operations: offer and question
// management, grant administration, tenant settings and asset uploads.
type AdminUseCase struct {
	directory domain.TenantDirectory
	newScope  domain.ScopeFactory
	files     domain.FileStore // nil when object storage is not configured
	logger    *slog.Logger
	maxUpload int64
}

// NewAdminUseCase creates a new AdminUseCase.
func NewAdminUseCase(directory domain.TenantDirectory, newScope domain.ScopeFactory, files domain.FileStore, logger *slog.Logger, maxUpload int64) *AdminUseCase {
	return &AdminUseCase{
		directory: directory,
		newScope:  newScope,
		files:     files,
		logger:    logger.With("component", "admin"),
		maxUpload: maxUpload,
	}
}

// OfferInput carries the editable fields of an offer.
type OfferInput struct {
	Title          string     `json:"title"`
	Discount       string     `json:"discount"`
	MaxRedemptions int        `json:"max_redemptions"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Active         bool       `json:"active"`
}

func (in OfferInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: offer title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Discount) == "" {
		return fmt.Errorf("%w: discount description is required", domain.ErrValidation)
	}
	if in.MaxRedemptions < 1 {
		return fmt.Errorf("%w: max redemptions must be at least 1", domain.ErrValidation)
	}
	return nil
}

// ListOffers returns all of the tenant's offers, active or not.
func (uc *AdminUseCase) ListOffers(ctx context.Context, tenant *domain.Tenant) ([]domain.Offer, error) {
	return uc.newScope(tenant.ID).Offers().List(ctx)
}

// CreateOffer validates and stores a new offer.
func (uc *AdminUseCase) CreateOffer(ctx context.Context, tenant *domain.Tenant, in OfferInput) (*domain.Offer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	offer := &domain.Offer{
		ID:             uuid.New(),
		TenantID:       tenant.ID,
		Title:          strings.TrimSpace(in.Title),
		Discount:       strings.TrimSpace(in.Discount),
		MaxRedemptions: in.MaxRedemptions,
		ExpiresAt:      in.ExpiresAt,
		Active:         in.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.newScope(tenant.ID).Offers().Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	return offer, nil
}

// UpdateOffer validates and applies edits to an existing offer.
func (uc *AdminUseCase) UpdateOffer(ctx context.Context, tenant *domain.Tenant, id uuid.UUID, in OfferInput) (*domain.Offer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	scope := uc.newScope(tenant.ID)
	offer, err := scope.Offers().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	offer.Title = strings.TrimSpace(in.Title)
	offer.Discount = strings.TrimSpace(in.Discount)
	offer.MaxRedemptions = in.MaxRedemptions
	offer.ExpiresAt = in.ExpiresAt
	offer.Active = in.Active
	offer.UpdatedAt = time.Now().UTC()

	if err := scope.Offers().Update(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}
	return offer, nil
}

// DeleteOffer removes an offer.
func (uc *AdminUseCase) DeleteOffer(ctx context.Context, tenant *domain.Tenant, id uuid.UUID) error {
	return uc.newScope(tenant.ID).Offers().Delete(ctx, id)
}

// QuestionInput carries the editable fields of a survey question.
type QuestionInput struct {
	Prompt   string   `json:"prompt"`
	Kind     string   `json:"kind"`
	Choices  []string `json:"choices,omitempty"`
	Position int      `json:"position"`
	Active   bool     `json:"active"`
}

func (in QuestionInput) validate() (domain.QuestionKind, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return "", fmt.Errorf("%w: question prompt is required", domain.ErrValidation)
	}
	kind := domain.QuestionKind(in.Kind)
	switch kind {
	case domain.QuestionText:
		if len(in.Choices) > 0 {
			return "", fmt.Errorf("%w: text questions take no choices", domain.ErrValidation)
		}
	case domain.QuestionChoice:
		if len(in.Choices) < 2 {
			return "", fmt.Errorf("%w: choice questions need at least 2 choices", domain.ErrValidation)
		}
	default:
		return "", fmt.Errorf("%w: unknown question kind %q", domain.ErrValidation, in.Kind)
	}
	return kind, nil
}

// ListQuestions returns all survey questions, including inactive ones.
func (uc *AdminUseCase) ListQuestions(ctx context.Context, tenant *domain.Tenant) ([]domain.Question, error) {
	return uc.newScope(tenant.ID).Surveys().ListQuestions(ctx, false)
}

// CreateQuestion validates and stores a survey question.
func (uc *AdminUseCase) CreateQuestion(ctx context.Context, tenant *domain.Tenant, in QuestionInput) (*domain.Question, error) {
	kind, err := in.validate()
	if err != nil {
		return nil, err
	}

	q := &domain.Question{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Prompt:    strings.TrimSpace(in.Prompt),
		Kind:      kind,
		Choices:   in.Choices,
		Position:  in.Position,
		Active:    in.Active,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.newScope(tenant.ID).Surveys().CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

// UpdateQuestion validates and applies edits to a survey question.
func (uc *AdminUseCase) UpdateQuestion(ctx context.Context, tenant *domain.Tenant, id uuid.UUID, in QuestionInput) (*domain.Question, error) {
	kind, err := in.validate()
	if err != nil {
		return nil, err
	}

	q := &domain.Question{
		ID:       id,
		TenantID: tenant.ID,
		Prompt:   strings.TrimSpace(in.Prompt),
		Kind:     kind,
		Choices:  in.Choices,
		Position: in.Position,
		Active:   in.Active,
	}
	if err := uc.newScope(tenant.ID).Surveys().UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuestion removes a survey question.
func (uc *AdminUseCase) DeleteQuestion(ctx context.Context, tenant *domain.Tenant, id uuid.UUID) error {
	return uc.newScope(tenant.ID).Surveys().DeleteQuestion(ctx, id)
}

// ListGrants returns the tenant's grants, most recent first.
func (uc *AdminUseCase) ListGrants(ctx context.Context, tenant *domain.Tenant, limit int) ([]domain.Grant, error) {
	return uc.newScope(tenant.ID).Grants().List(ctx, limit)
}

// RevokeGrant terminates the grant carrying the given code.
func (uc *AdminUseCase) RevokeGrant(ctx context.Context, tenant *domain.Tenant, couponCode string) (*domain.Grant, error) {
	scope := uc.newScope(tenant.ID)
	grant, err := scope.Grants().GetByCode(ctx, couponCode)
	if err != nil {
		return nil, err
	}

	revoked, err := scope.Grants().Revoke(ctx, grant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke grant: %w", err)
	}
	if !revoked {
		return nil, fmt.Errorf("%w: grant is not in a revocable state", domain.ErrValidation)
	}

	grant.Status = domain.GrantRevoked
	return grant, nil
}

// OfferStats aggregates issuance and redemption counts per offer.
func (uc *AdminUseCase) OfferStats(ctx context.Context, tenant *domain.Tenant) ([]domain.OfferStats, error) {
	return uc.newScope(tenant.ID).Grants().StatsByOffer(ctx)
}

// ListOptIns exports the tenant's survey-gate consents.
func (uc *AdminUseCase) ListOptIns(ctx context.Context, tenant *domain.Tenant) ([]domain.OptIn, error) {
	return uc.newScope(tenant.ID).Surveys().ListOptIns(ctx)
}

// SetTenantActive toggles tenant-facing access.
func (uc *AdminUseCase) SetTenantActive(ctx context.Context, tenant *domain.Tenant, active bool) error {
	if err := uc.directory.SetActive(ctx, tenant.ID, active); err != nil {
		return fmt.Errorf("failed to toggle tenant: %w", err)
	}
	return nil
}

// UpdateTheme updates the tenant's display theme.
func (uc *AdminUseCase) UpdateTheme(ctx context.Context, tenant *domain.Tenant, theme string) error {
	if strings.TrimSpace(theme) == "" {
		return fmt.Errorf("%w: theme is required", domain.ErrValidation)
	}
	if err := uc.directory.UpdateBranding(ctx, tenant.ID, tenant.LogoURL, theme); err != nil {
		return fmt.Errorf("failed to update theme: %w", err)
	}
	return nil
}

// UploadLogo validates and stores a tenant logo, then points the tenant's
// branding at the new URL.
func (uc *AdminUseCase) UploadLogo(ctx context.Context, tenant *domain.Tenant, contentType string, size int64, body io.Reader) (string, error) {
	if uc.files == nil {
		return "", fmt.Errorf("%w: object storage is not configured", domain.ErrUnavailable)
	}
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %q", domain.ErrValidation, contentType)
	}
	if size <= 0 || size > uc.maxUpload {
		return "", fmt.Errorf("%w: image must be between 1 byte and %d bytes", domain.ErrValidation, uc.maxUpload)
	}

	key := path.Join("tenants", tenant.ID.String(), "logo"+ext)
	url, err := uc.files.Upload(ctx, key, contentType, body, size)
	if err != nil {
		return "", fmt.Errorf("failed to upload logo: %w", err)
	}

	if err := uc.directory.UpdateBranding(ctx, tenant.ID, &url, tenant.Theme); err != nil {
		// The object is uploaded but unreferenced; surface the branding
		// failure so the operator retries.
		return "", fmt.Errorf("failed to update branding: %w", err)
	}
	return url, nil
}
