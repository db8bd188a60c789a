package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/promogate/promogate/internal/adapter/metrics"
	"github.com/promogate/promogate/internal/domain"
)

type staffKeyCacheEntry struct {
	identity  *domain.StaffIdentity
	expiresAt time.Time
}

// StaffKeyRepository implements domain.StaffKeyRepository using PostgreSQL as
// the source of truth and an in-memory, time-based cache. A nil identity is
// cached too, so repeated probes with a bad key do not hammer the database.
type StaffKeyRepository struct {
	db       *sqlx.DB
	logger   *slog.Logger
	cache    map[string]staffKeyCacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	metrics  *metrics.PlatformMetrics
}

// NewStaffKeyRepository creates a new instance of the PostgreSQL staff key
// repository.
func NewStaffKeyRepository(db *sqlx.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.PlatformMetrics) *StaffKeyRepository {
	return &StaffKeyRepository{
		db:       db,
		logger:   logger.With("component", "staffkey_repository"),
		cache:    make(map[string]staffKeyCacheEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// Identify maps a staff key to its identity. It first checks a local cache and
// falls back to the database if the key is not found or the entry has expired.
func (r *StaffKeyRepository) Identify(ctx context.Context, key string) (*domain.StaffIdentity, error) {
	r.mu.RLock()
	entry, found := r.cache[key]
	r.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.StaffKeyCacheHits.Inc()
		}
		return identityOrUnauthorized(entry.identity)
	}

	if r.metrics != nil {
		r.metrics.StaffKeyCacheMisses.Inc()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check in case another goroutine populated the entry while
	// waiting for the lock.
	entry, found = r.cache[key]
	if found && time.Now().Before(entry.expiresAt) {
		return identityOrUnauthorized(entry.identity)
	}

	query := `
		SELECT tenant_id, role
		FROM staff_keys
		WHERE key = $1 AND active = TRUE AND (expires_at IS NULL OR expires_at > NOW())
	`

	var identity domain.StaffIdentity
	err := r.db.GetContext(ctx, &identity, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.cache[key] = staffKeyCacheEntry{identity: nil, expiresAt: time.Now().Add(r.cacheTTL)}
			return nil, domain.ErrUnauthorized
		}
		// Don't cache errors, let the next request retry from the DB.
		r.logger.Error("failed to validate staff key in database", "error", err)
		return nil, fmt.Errorf("failed to validate staff key: %w", err)
	}

	r.cache[key] = staffKeyCacheEntry{identity: &identity, expiresAt: time.Now().Add(r.cacheTTL)}
	return &identity, nil
}

func identityOrUnauthorized(identity *domain.StaffIdentity) (*domain.StaffIdentity, error) {
	if identity == nil {
		return nil, domain.ErrUnauthorized
	}
	return identity, nil
}
