package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSessionManager(t *testing.T) (*SessionManager, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := NewSessionManager(client, "meridian_session", "test-secret", time.Hour, false)
	return sm, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSessionRoundTrip(t *testing.T) {
	sm, cleanup := newTestSessionManager(t)
	defer cleanup()
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")
	sess.SetActiveContext("company", 7)

	rr := httptest.NewRecorder()
	if err := sm.Commit(ctx, rr, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "meridian_session" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "42" {
		t.Fatalf("expected user 42, got %q", loaded.User())
	}
	scope, id := loaded.ActiveContext()
	if scope != "company" || id != 7 {
		t.Fatalf("expected company:7, got %s:%d", scope, id)
	}
}

func TestSessionDestroy(t *testing.T) {
	sm, cleanup := newTestSessionManager(t)
	defer cleanup()
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")

	rr := httptest.NewRecorder()
	if err := sm.Commit(ctx, rr, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := rr.Result().Cookies()[0]

	sm.Destroy(sess)
	rr2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, rr2, req, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	expired := rr2.Result().Cookies()
	if len(expired) != 1 || expired[0].MaxAge != -1 {
		t.Fatalf("expected expiring cookie, got %v", expired)
	}

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, req3)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.User() != "" {
		t.Fatalf("expected empty session after destroy, got user %q", reloaded.User())
	}
}

func TestCSRFTokenVerification(t *testing.T) {
	sm, cleanup := newTestSessionManager(t)
	defer cleanup()
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	csrf := NewCSRFManager("csrf-secret")
	token, err := csrf.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	if err := csrf.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := csrf.VerifyToken(ctx, sess, "forged"); err == nil {
		t.Fatal("expected mismatch error")
	}
	if err := csrf.VerifyToken(ctx, sess, ""); err == nil {
		t.Fatal("expected missing-token error")
	}
}
