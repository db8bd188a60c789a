package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/promogate/promogate/internal/adapter/metrics"
	"github.com/promogate/promogate/internal/domain"
)

// subdomainPattern ensures DNS-safe labels: alphanumeric start, allows hyphens.
var subdomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// SubdomainFromHost extracts the tenant label from a request host header.
// Pure string transform, no I/O.
//
// Rules: the port is stripped; "localhost" and the bare apex domain carry no
// subdomain; "<label>.localhost" is the local-development form of a tenant
// subdomain; hosts with fewer than 3 dot-separated labels carry no subdomain;
// reserved labels (www, admin, api, ...) are not tenants. Otherwise the
// leftmost label is the candidate.
func SubdomainFromHost(host, apexDomain string, reserved []string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	if host == "" || host == "localhost" || host == apexDomain {
		return ""
	}

	// Local development: acme.localhost resolves like acme.<apex>.
	if label, ok := strings.CutSuffix(host, ".localhost"); ok {
		if strings.Contains(label, ".") || slices.Contains(reserved, label) || !subdomainPattern.MatchString(label) {
			return ""
		}
		return label
	}

	if len(strings.Split(host, ".")) < 3 {
		return ""
	}

	label := strings.Split(host, ".")[0]
	if slices.Contains(reserved, label) || !subdomainPattern.MatchString(label) {
		return ""
	}
	return label
}

type tenantCacheEntry struct {
	tenant    *domain.Tenant
	expiresAt time.Time
}

// TenantResolver maps slugs and subdomains to tenants, with an in-memory
// TTL cache in front of the directory. The primary lookup is restricted to
// active tenants; on a miss it falls back to an unfiltered lookup so
// deactivated tenants stay resolvable for staff flows. Public handlers are
// responsible for rejecting inactive tenants.
type TenantResolver struct {
	directory domain.TenantDirectory
	logger    *slog.Logger
	metrics   *metrics.PlatformMetrics
	cacheTTL  time.Duration

	mu    sync.RWMutex
	cache map[string]tenantCacheEntry
}

// NewTenantResolver creates a new TenantResolver.
func NewTenantResolver(directory domain.TenantDirectory, logger *slog.Logger, cacheTTL time.Duration, m *metrics.PlatformMetrics) *TenantResolver {
	return &TenantResolver{
		directory: directory,
		logger:    logger.With("component", "tenant_resolver"),
		metrics:   m,
		cacheTTL:  cacheTTL,
		cache:     make(map[string]tenantCacheEntry),
	}
}

// Resolve maps a slug or subdomain to its tenant. Returns
// domain.ErrNotFound when no tenant matches the identifier.
func (r *TenantResolver) Resolve(ctx context.Context, identifier string) (*domain.Tenant, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty tenant identifier", domain.ErrNotFound)
	}

	r.mu.RLock()
	entry, found := r.cache[identifier]
	r.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.TenantCacheHits.Inc()
		}
		return entry.tenant, nil
	}

	if r.metrics != nil {
		r.metrics.TenantCacheMisses.Inc()
	}

	tenant, err := r.lookup(ctx, identifier)
	if err != nil {
		// Not-found is cacheable in principle, but a fresh tenant should be
		// reachable immediately after creation, so only successes are cached.
		return nil, err
	}

	r.mu.Lock()
	r.cache[identifier] = tenantCacheEntry{tenant: tenant, expiresAt: time.Now().Add(r.cacheTTL)}
	r.mu.Unlock()

	return tenant, nil
}

func (r *TenantResolver) lookup(ctx context.Context, identifier string) (*domain.Tenant, error) {
	tenant, err := r.directory.FindActive(ctx, identifier)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("tenant lookup failed: %w", err)
	}

	// Fallback: the tenant may exist but be deactivated. Staff flows still
	// need to reach it; public flows check Active themselves.
	tenant, err = r.directory.Find(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: tenant %q", domain.ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("tenant fallback lookup failed: %w", err)
	}

	r.logger.Debug("resolved inactive tenant via fallback", "identifier", identifier, "tenant_id", tenant.ID)
	return tenant, nil
}

// Invalidate drops a cached identifier, e.g. after an activation toggle.
func (r *TenantResolver) Invalidate(identifier string) {
	r.mu.Lock()
	delete(r.cache, strings.ToLower(strings.TrimSpace(identifier)))
	r.mu.Unlock()
}
