package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
	_ "github.com/meridian-hq/meridian/internal/testing/guard"
)

type stubTenancyRepo struct{}

func (stubTenancyRepo) FindSubject(ctx context.Context, id int64) (tenancy.Subject, error) {
	return tenancy.Subject{ID: id, IsActive: true}, nil
}

func (stubTenancyRepo) ListAssignmentContexts(ctx context.Context, subjectID int64) ([]tenancy.AssignmentContext, error) {
	return []tenancy.AssignmentContext{
		{RoleID: 1, Scope: tenancy.ScopeCompany, ContextID: 3},
	}, nil
}

func (stubTenancyRepo) EstablishmentCompany(ctx context.Context, establishmentID int64) (int64, error) {
	return 0, nil
}

func newTestHandler(t *testing.T) (*Handler, *shared.SessionManager, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "meridian_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &mockRepo{users: map[string]*User{
		"user@meridian.local": {ID: 7, Email: "user@meridian.local", Name: "Test User", PasswordHash: string(hash), IsActive: true},
	}}
	service := NewService(repo)
	resolver := tenancy.NewResolver(stubTenancyRepo{})
	handler := NewHandler(slog.Default(), service, sessions, csrf, resolver)
	return handler, sessions, func() {
		_ = client.Close()
		mr.Close()
	}
}

func performLogin(t *testing.T, handler *Handler, sessions *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(req.Context(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr, sess
}

func TestLoginSuccess(t *testing.T) {
	handler, sessions, cleanup := newTestHandler(t)
	defer cleanup()

	rr, sess := performLogin(t, handler, sessions, `{"email":"user@meridian.local","password":"secret"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 7 || resp.CSRFToken == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Context.Context.Scope != tenancy.ScopeCompany || resp.Context.Context.ID != 3 {
		t.Fatalf("expected home context company:3, got %+v", resp.Context)
	}

	if sess.User() != "7" {
		t.Fatalf("expected session user 7, got %q", sess.User())
	}
	scope, id := sess.ActiveContext()
	if scope != "company" || id != 3 {
		t.Fatalf("expected active context company:3, got %s:%d", scope, id)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler, sessions, cleanup := newTestHandler(t)
	defer cleanup()

	rr, _ := performLogin(t, handler, sessions, `{"email":"user@meridian.local","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestLoginValidatesPayload(t *testing.T) {
	handler, sessions, cleanup := newTestHandler(t)
	defer cleanup()

	rr, _ := performLogin(t, handler, sessions, `{"email":"not-an-email"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	handler, sessions, cleanup := newTestHandler(t)
	defer cleanup()

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess, err := sessions.Load(req.Context(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("7")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
