package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/usecase"
)

// In-memory port fakes backing the handler tests.

type fakeUsers struct {
	bySubject map[string]*domain.User
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{bySubject: make(map[string]*domain.User)}
	for _, u := range users {
		f.bySubject[u.SubjectID] = u
	}
	return f
}

func (f *fakeUsers) FindBySubjectID(_ context.Context, subjectID string) (*domain.User, error) {
	if u, ok := f.bySubject[subjectID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.bySubject {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.bySubject[user.SubjectID] = user
	return nil
}

func (f *fakeUsers) List(_ context.Context, offset, limit int) ([]*domain.User, error) {
	all := make([]*domain.User, 0, len(f.bySubject))
	for _, u := range f.bySubject {
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

func (f *fakeUsers) UpdateRole(_ context.Context, subjectID string, role domain.Role, _ string) error {
	u, ok := f.bySubject[subjectID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUsers) TouchLastLogin(context.Context, string) error { return nil }

func (f *fakeUsers) Delete(_ context.Context, subjectID string) error {
	if _, ok := f.bySubject[subjectID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(f.bySubject, subjectID)
	return nil
}

type fakeSessions struct {
	active map[string][]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{active: make(map[string][]domain.Session)}
}

func (f *fakeSessions) Create(_ context.Context, s domain.Session) error {
	f.active[s.SubjectID] = append(f.active[s.SubjectID], s)
	return nil
}

func (f *fakeSessions) Touch(context.Context, string, domain.Fingerprint) error { return nil }

func (f *fakeSessions) ListActive(_ context.Context, subjectID string) ([]domain.Session, error) {
	return f.active[subjectID], nil
}

func (f *fakeSessions) Remove(_ context.Context, subjectID string, fp domain.Fingerprint) error {
	kept := f.active[subjectID][:0]
	for _, s := range f.active[subjectID] {
		if s.Fingerprint != fp {
			kept = append(kept, s)
		}
	}
	f.active[subjectID] = kept
	return nil
}

func (f *fakeSessions) RemoveAll(_ context.Context, subjectID string) error {
	delete(f.active, subjectID)
	return nil
}

type fakeRevocation struct{}

func (fakeRevocation) Mark(context.Context, domain.Fingerprint, time.Duration) error { return nil }
func (fakeRevocation) IsRevoked(context.Context, domain.Fingerprint) (bool, error)   { return false, nil }

type fakeProfiles struct{}

func (fakeProfiles) Get(context.Context, string) (*domain.CachedProfile, bool, error) {
	return nil, false, nil
}
func (fakeProfiles) Put(context.Context, string, domain.CachedProfile, time.Duration) error {
	return nil
}
func (fakeProfiles) Invalidate(context.Context, string) error { return nil }

type fakeClaims struct {
	set map[string]domain.Role
}

func newFakeClaims() *fakeClaims { return &fakeClaims{set: make(map[string]domain.Role)} }

func (f *fakeClaims) SetRoleClaim(_ context.Context, subjectID string, role domain.Role) error {
	f.set[subjectID] = role
	return nil
}

type fakeAdmin struct {
	nextID  string
	deleted []string
}

func (f *fakeAdmin) CreateIdentity(context.Context, string, string, string, domain.Role) (string, error) {
	return f.nextID, nil
}

func (f *fakeAdmin) DeleteIdentity(_ context.Context, subjectID string) error {
	f.deleted = append(f.deleted, subjectID)
	return nil
}

type fakeRepairs struct{}

func (fakeRepairs) Schedule(string) {}

func (fakeRepairs) ScheduleRevoke(string) {}

// testEnv wires handlers against in-memory fakes.
type testEnv struct {
	users    *fakeUsers
	sessions *fakeSessions
	echo     *echo.Echo
	revoker  *usecase.ManageSessions
	manage   *usecase.ManageUsers
	setRole  *usecase.SetRole
}

func newTestEnv(users ...*domain.User) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		users:    newFakeUsers(users...),
		sessions: newFakeSessions(),
		echo:     echo.New(),
	}
	env.echo.Validator = NewValidator()
	env.revoker = usecase.NewManageSessions(env.sessions, fakeRevocation{}, fakeProfiles{}, logger)
	env.manage = usecase.NewManageUsers(env.users, &fakeAdmin{nextID: "new-subject"}, env.revoker, logger)
	env.setRole = usecase.NewSetRole(env.users, newFakeClaims(), fakeProfiles{}, fakeRepairs{}, env.revoker, logger)
	return env
}

// request performs an echo request with an authenticated identity
// already attached, the way the auth middleware would leave it.
func (env *testEnv) request(t *testing.T, method, path, body string, identity *domain.IdentityContext, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if identity != nil {
		req = req.WithContext(domain.WithIdentity(req.Context(), identity))
	}

	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetPath(path)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if err := h(c); err != nil {
		env.echo.HTTPErrorHandler(err, c)
	}
	return rec
}

func admin(subjectID string) *domain.IdentityContext {
	return &domain.IdentityContext{SubjectID: subjectID, Role: domain.RoleAdmin}
}

func superadmin(subjectID string) *domain.IdentityContext {
	return &domain.IdentityContext{SubjectID: subjectID, Role: domain.RoleSuperadmin}
}

func regularUser(subjectID string) *domain.IdentityContext {
	return &domain.IdentityContext{SubjectID: subjectID, Role: domain.RoleUser}
}

func testUser(subjectID string, role domain.Role) *domain.User {
	u, _ := domain.NewUser(subjectID, subjectID+"@example.com", "")
	u.Role = role
	return u
}
