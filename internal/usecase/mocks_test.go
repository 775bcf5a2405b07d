package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"auth-gateway/internal/domain"
)

// mockVerifier implements domain.TokenVerifier for testing.
type mockVerifier struct {
	identity *domain.DecodedIdentity
	err      error
	calls    int
}

func (m *mockVerifier) Verify(_ context.Context, _ string) (*domain.DecodedIdentity, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.identity
	return &cp, nil
}

// mockRevocation implements domain.RevocationStore for testing.
type mockRevocation struct {
	revoked map[domain.Fingerprint]time.Duration
	isErr   error
	markErr error
}

func newMockRevocation() *mockRevocation {
	return &mockRevocation{revoked: make(map[domain.Fingerprint]time.Duration)}
}

func (m *mockRevocation) Mark(_ context.Context, fp domain.Fingerprint, ttl time.Duration) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.revoked[fp] = ttl
	return nil
}

func (m *mockRevocation) IsRevoked(_ context.Context, fp domain.Fingerprint) (bool, error) {
	if m.isErr != nil {
		return false, m.isErr
	}
	_, ok := m.revoked[fp]
	return ok, nil
}

// mockTokenCache implements domain.TokenCache for testing.
type mockTokenCache struct {
	entries map[domain.Fingerprint]domain.DecodedIdentity
	ttls    map[domain.Fingerprint]time.Duration
	getErr  error
	putErr  error
}

func newMockTokenCache() *mockTokenCache {
	return &mockTokenCache{
		entries: make(map[domain.Fingerprint]domain.DecodedIdentity),
		ttls:    make(map[domain.Fingerprint]time.Duration),
	}
}

func (m *mockTokenCache) Get(_ context.Context, fp domain.Fingerprint) (*domain.DecodedIdentity, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	entry, ok := m.entries[fp]
	if !ok {
		return nil, false, nil
	}
	cp := entry
	return &cp, true, nil
}

func (m *mockTokenCache) Put(_ context.Context, fp domain.Fingerprint, identity domain.DecodedIdentity, ttl time.Duration) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[fp] = identity
	m.ttls[fp] = ttl
	return nil
}

// mockProfileCache implements domain.ProfileCache for testing.
type mockProfileCache struct {
	entries     map[string]domain.CachedProfile
	ttls        map[string]time.Duration
	invalidated []string
	getErr      error
	putErr      error
	invErr      error
}

func newMockProfileCache() *mockProfileCache {
	return &mockProfileCache{
		entries: make(map[string]domain.CachedProfile),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *mockProfileCache) Get(_ context.Context, subjectID string) (*domain.CachedProfile, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	entry, ok := m.entries[subjectID]
	if !ok {
		return nil, false, nil
	}
	cp := entry
	return &cp, true, nil
}

func (m *mockProfileCache) Put(_ context.Context, subjectID string, profile domain.CachedProfile, ttl time.Duration) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[subjectID] = profile
	m.ttls[subjectID] = ttl
	return nil
}

func (m *mockProfileCache) Invalidate(_ context.Context, subjectID string) error {
	if m.invErr != nil {
		return m.invErr
	}
	m.invalidated = append(m.invalidated, subjectID)
	delete(m.entries, subjectID)
	return nil
}

// mockSessions implements domain.SessionRegistry for testing.
type mockSessions struct {
	active     map[string][]domain.Session
	created    []domain.Session
	touched    []domain.Fingerprint
	removed    []domain.Fingerprint
	removedAll []string
	createErr  error
	touchErr   error
	listErr    error
	removeErr  error
}

func newMockSessions() *mockSessions {
	return &mockSessions{active: make(map[string][]domain.Session)}
}

func (m *mockSessions) Create(_ context.Context, session domain.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, session)
	m.active[session.SubjectID] = append(m.active[session.SubjectID], session)
	return nil
}

func (m *mockSessions) Touch(_ context.Context, _ string, fp domain.Fingerprint) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	m.touched = append(m.touched, fp)
	return nil
}

func (m *mockSessions) ListActive(_ context.Context, subjectID string) ([]domain.Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.active[subjectID], nil
}

func (m *mockSessions) Remove(_ context.Context, subjectID string, fp domain.Fingerprint) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, fp)
	remaining := m.active[subjectID][:0]
	for _, s := range m.active[subjectID] {
		if s.Fingerprint != fp {
			remaining = append(remaining, s)
		}
	}
	m.active[subjectID] = remaining
	return nil
}

func (m *mockSessions) RemoveAll(_ context.Context, subjectID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removedAll = append(m.removedAll, subjectID)
	delete(m.active, subjectID)
	return nil
}

// roleUpdate records one UpdateRole call.
type roleUpdate struct {
	subjectID string
	role      domain.Role
	updatedBy string
}

// mockUsers implements domain.UserRepository for testing.
type mockUsers struct {
	bySubject   map[string]*domain.User
	created     []*domain.User
	roleUpdates []roleUpdate
	touched     []string
	deleted     []string
	findErr     error
	createErr   error
	updateErr   error
	deleteErr   error
	listErr     error
}

func newMockUsers(users ...*domain.User) *mockUsers {
	m := &mockUsers{bySubject: make(map[string]*domain.User)}
	for _, u := range users {
		m.bySubject[u.SubjectID] = u
	}
	return m
}

func (m *mockUsers) FindBySubjectID(_ context.Context, subjectID string) (*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.bySubject[subjectID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *mockUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, user := range m.bySubject {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUsers) Create(_ context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, user)
	m.bySubject[user.SubjectID] = user
	return nil
}

func (m *mockUsers) List(_ context.Context, offset, limit int) ([]*domain.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	all := make([]*domain.User, 0, len(m.bySubject))
	for _, u := range m.bySubject {
		all = append(all, u)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockUsers) UpdateRole(_ context.Context, subjectID string, role domain.Role, updatedBy string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.bySubject[subjectID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Role = role
	m.roleUpdates = append(m.roleUpdates, roleUpdate{subjectID, role, updatedBy})
	return nil
}

func (m *mockUsers) TouchLastLogin(_ context.Context, subjectID string) error {
	m.touched = append(m.touched, subjectID)
	return nil
}

func (m *mockUsers) Delete(_ context.Context, subjectID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.bySubject[subjectID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.bySubject, subjectID)
	m.deleted = append(m.deleted, subjectID)
	return nil
}

// mockClaims implements domain.ClaimChannel for testing. failures fails
// that many leading calls before succeeding. The mutex makes it safe to
// inspect from a test while a worker goroutine writes.
type mockClaims struct {
	mu       sync.Mutex
	set      map[string]domain.Role
	failures int
	err      error
	calls    int
}

func newMockClaims() *mockClaims {
	return &mockClaims{set: make(map[string]domain.Role)}
}

func (m *mockClaims) SetRoleClaim(_ context.Context, subjectID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		if m.err != nil {
			return m.err
		}
		return errors.New("claim channel unavailable")
	}
	m.set[subjectID] = role
	return nil
}

func (m *mockClaims) roleFor(subjectID string) domain.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set[subjectID]
}

func (m *mockClaims) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRepairs implements domain.RepairScheduler for testing.
type mockRepairs struct {
	scheduled []string
	revokes   []string
}

func (m *mockRepairs) Schedule(subjectID string) {
	m.scheduled = append(m.scheduled, subjectID)
}

func (m *mockRepairs) ScheduleRevoke(subjectID string) {
	m.revokes = append(m.revokes, subjectID)
}

// identityCreate records one CreateIdentity call.
type identityCreate struct {
	email string
	role  domain.Role
}

// mockAdmin implements domain.IdentityAdmin for testing.
type mockAdmin struct {
	nextID    string
	created   []identityCreate
	deleted   []string
	createErr error
	deleteErr error
}

func (m *mockAdmin) CreateIdentity(_ context.Context, email, _, _ string, role domain.Role) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, identityCreate{email, role})
	return m.nextID, nil
}

func (m *mockAdmin) DeleteIdentity(_ context.Context, subjectID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, subjectID)
	return nil
}
