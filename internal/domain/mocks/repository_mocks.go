package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/domain"
)

// MockTenantDirectory is an in-memory implementation of domain.TenantDirectory.
type MockTenantDirectory struct {
	mu        sync.Mutex
	Tenants   []domain.Tenant
	FindErr   error
	ActiveErr error
}

func (m *MockTenantDirectory) FindActive(ctx context.Context, identifier string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ActiveErr != nil {
		return nil, m.ActiveErr
	}
	for i := range m.Tenants {
		t := m.Tenants[i]
		if !t.Active {
			continue
		}
		if t.Slug == identifier || (t.Subdomain != nil && *t.Subdomain == identifier) {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTenantDirectory) Find(ctx context.Context, identifier string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for i := range m.Tenants {
		t := m.Tenants[i]
		if t.Slug == identifier || (t.Subdomain != nil && *t.Subdomain == identifier) {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTenantDirectory) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for i := range m.Tenants {
		if m.Tenants[i].ID == id {
			t := m.Tenants[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTenantDirectory) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Tenants {
		if m.Tenants[i].ID == id {
			m.Tenants[i].Active = active
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockTenantDirectory) UpdateBranding(ctx context.Context, id uuid.UUID, logoURL *string, theme string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Tenants {
		if m.Tenants[i].ID == id {
			m.Tenants[i].LogoURL = logoURL
			m.Tenants[i].Theme = theme
			return nil
		}
	}
	return domain.ErrNotFound
}

// MockScope bundles the in-memory repositories behind a domain.TenantScope.
type MockScope struct {
	ID         uuid.UUID
	OfferRepo  *MockOfferRepository
	GrantRepo  *MockGrantRepository
	SurveyRepo *MockSurveyRepository
}

// NewMockScope creates a scope with empty repositories for the given tenant.
func NewMockScope(tenantID uuid.UUID) *MockScope {
	return &MockScope{
		ID:         tenantID,
		OfferRepo:  &MockOfferRepository{},
		GrantRepo:  &MockGrantRepository{},
		SurveyRepo: &MockSurveyRepository{OptIns: map[string]time.Time{}},
	}
}

func (m *MockScope) TenantID() uuid.UUID            { return m.ID }
func (m *MockScope) Offers() domain.OfferRepository { return m.OfferRepo }
func (m *MockScope) Grants() domain.GrantRepository { return m.GrantRepo }
func (m *MockScope) Surveys() domain.SurveyRepository {
	return m.SurveyRepo
}

// MockOfferRepository is an in-memory implementation of domain.OfferRepository.
type MockOfferRepository struct {
	mu     sync.Mutex
	Offers []domain.Offer
	Err    error
}

func (m *MockOfferRepository) ListActive(ctx context.Context) ([]domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Offer
	for _, o := range m.Offers {
		if o.Active {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOfferRepository) List(ctx context.Context) ([]domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.Offer(nil), m.Offers...), nil
}

func (m *MockOfferRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Offers {
		if m.Offers[i].ID == id {
			o := m.Offers[i]
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Offers = append(m.Offers, *offer)
	return nil
}

func (m *MockOfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Offers {
		if m.Offers[i].ID == offer.ID {
			m.Offers[i] = *offer
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockOfferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Offers {
		if m.Offers[i].ID == id {
			m.Offers = append(m.Offers[:i], m.Offers[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// MockGrantRepository is an in-memory implementation of domain.GrantRepository.
// It mirrors the store-level uniqueness behavior (code index, partial
// active-grant index) so issuance guard tests exercise the retry paths.
type MockGrantRepository struct {
	mu         sync.Mutex
	Grants     []domain.Grant
	InsertErrs []error // popped one per Insert call before any other check
	Err        error
}

func (m *MockGrantRepository) LatestForRecipient(ctx context.Context, offerID uuid.UUID, recipient *string) (*domain.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var latest *domain.Grant
	for i := range m.Grants {
		g := &m.Grants[i]
		if g.OfferID != offerID || !sameRecipient(g.Recipient, recipient) {
			continue
		}
		if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
			latest = g
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	g := *latest
	return &g, nil
}

func (m *MockGrantRepository) Insert(ctx context.Context, grant *domain.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.InsertErrs) > 0 {
		err := m.InsertErrs[0]
		m.InsertErrs = m.InsertErrs[1:]
		if err != nil {
			return err
		}
	}
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Grants {
		g := &m.Grants[i]
		if g.Code == grant.Code {
			return domain.ErrCodeTaken
		}
		active := g.Status == domain.GrantIssued || g.Status == domain.GrantRedeemed
		if active && grant.Recipient != nil && g.OfferID == grant.OfferID && sameRecipient(g.Recipient, grant.Recipient) {
			return domain.ErrGrantExists
		}
	}
	m.Grants = append(m.Grants, *grant)
	return nil
}

func (m *MockGrantRepository) GetByCode(ctx context.Context, code string) (*domain.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Grants {
		if m.Grants[i].Code == code {
			g := m.Grants[i]
			return &g, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockGrantRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Grants {
		if m.Grants[i].ID == id {
			m.Grants[i].Status = domain.GrantExpired
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockGrantRepository) ApplyRedemption(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	now := time.Now()
	for i := range m.Grants {
		g := &m.Grants[i]
		if g.ID != id {
			continue
		}
		if !g.Redeemable(now) {
			return false, nil
		}
		g.RedemptionsCount++
		if g.RedemptionsCount >= g.MaxRedemptions {
			g.Status = domain.GrantRedeemed
		}
		g.UpdatedAt = now
		return true, nil
	}
	return false, nil
}

func (m *MockGrantRepository) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i := range m.Grants {
		g := &m.Grants[i]
		if g.ID != id {
			continue
		}
		if g.Status != domain.GrantIssued && g.Status != domain.GrantRedeemed {
			return false, nil
		}
		g.Status = domain.GrantRevoked
		return true, nil
	}
	return false, nil
}

func (m *MockGrantRepository) List(ctx context.Context, limit int) ([]domain.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := append([]domain.Grant(nil), m.Grants...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockGrantRepository) StatsByOffer(ctx context.Context) ([]domain.OfferStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	byOffer := map[uuid.UUID]*domain.OfferStats{}
	for _, g := range m.Grants {
		s, ok := byOffer[g.OfferID]
		if !ok {
			s = &domain.OfferStats{OfferID: g.OfferID}
			byOffer[g.OfferID] = s
		}
		s.Issued++
		switch g.Status {
		case domain.GrantRedeemed:
			s.Redeemed++
		case domain.GrantRevoked:
			s.Revoked++
		}
	}
	out := make([]domain.OfferStats, 0, len(byOffer))
	for _, s := range byOffer {
		out = append(out, *s)
	}
	return out, nil
}

func sameRecipient(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// MockSurveyRepository is an in-memory implementation of domain.SurveyRepository.
type MockSurveyRepository struct {
	mu        sync.Mutex
	Questions []domain.Question
	Responses []domain.Response
	OptIns    map[string]time.Time
	Err       error
}

func (m *MockSurveyRepository) ListQuestions(ctx context.Context, activeOnly bool) ([]domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Question
	for _, q := range m.Questions {
		if activeOnly && !q.Active {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MockSurveyRepository) CreateQuestion(ctx context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Questions = append(m.Questions, *q)
	return nil
}

func (m *MockSurveyRepository) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Questions {
		if m.Questions[i].ID == q.ID {
			m.Questions[i] = *q
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockSurveyRepository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Questions {
		if m.Questions[i].ID == id {
			m.Questions = append(m.Questions[:i], m.Questions[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockSurveyRepository) InsertResponses(ctx context.Context, responses []domain.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Responses = append(m.Responses, responses...)
	return nil
}

func (m *MockSurveyRepository) UpsertOptIn(ctx context.Context, email string, consentedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.OptIns == nil {
		m.OptIns = map[string]time.Time{}
	}
	m.OptIns[email] = consentedAt
	return nil
}

func (m *MockSurveyRepository) HasOptIn(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.OptIns[email]
	return ok, nil
}

func (m *MockSurveyRepository) ListOptIns(ctx context.Context) ([]domain.OptIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.OptIn, 0, len(m.OptIns))
	for email, at := range m.OptIns {
		out = append(out, domain.OptIn{Email: email, ConsentedAt: at})
	}
	return out, nil
}

// MockRateLimitStore is an in-memory implementation of domain.RateLimitStore.
type MockRateLimitStore struct {
	mu      sync.Mutex
	Counts  map[string]int64
	Resets  map[string]time.Time
	IncrErr error
	PeekErr error
}

func (m *MockRateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrErr != nil {
		return 0, 0, m.IncrErr
	}
	if m.Counts == nil {
		m.Counts = map[string]int64{}
		m.Resets = map[string]time.Time{}
	}
	now := time.Now()
	if reset, ok := m.Resets[key]; !ok || now.After(reset) {
		m.Counts[key] = 0
		m.Resets[key] = now.Add(window)
	}
	m.Counts[key]++
	return m.Counts[key], time.Until(m.Resets[key]), nil
}

func (m *MockRateLimitStore) Peek(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PeekErr != nil {
		return 0, 0, m.PeekErr
	}
	now := time.Now()
	if reset, ok := m.Resets[key]; ok && now.Before(reset) {
		return m.Counts[key], time.Until(reset), nil
	}
	return 0, window, nil
}

// MockStaffKeyRepository is an in-memory implementation of domain.StaffKeyRepository.
type MockStaffKeyRepository struct {
	mu   sync.Mutex
	Keys map[string]domain.StaffIdentity
	Err  error
}

func (m *MockStaffKeyRepository) Identify(ctx context.Context, key string) (*domain.StaffIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	identity, ok := m.Keys[key]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &identity, nil
}

// MockNotifier records best-effort notifications for assertions.
type MockNotifier struct {
	mu       sync.Mutex
	Notified []string // grant codes
	Err      error
}

func (m *MockNotifier) GrantIssued(ctx context.Context, tenant *domain.Tenant, offer *domain.Offer, grant *domain.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Notified = append(m.Notified, grant.Code)
	return nil
}
