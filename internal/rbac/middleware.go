package rbac

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/meridian-hq/meridian/internal/platform/httpx"
	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

// Middleware wires permission guards for HTTP handlers. Checks run against
// the effective set for the session's active context.
type Middleware struct {
	Contexts    *tenancy.Resolver
	Permissions *Resolver
	Logger      *slog.Logger
}

// RequireAny ensures the current subject holds at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.effectiveSet(r)
			if err != nil {
				m.respondError(w, r, err)
				return
			}
			for _, p := range normalized {
				if granted.Has(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current subject holds all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.effectiveSet(r)
			if err != nil {
				m.respondError(w, r, err)
				return
			}
			for _, p := range normalized {
				if !granted.Has(p) {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// effectiveSet resolves the session's active context and returns the
// subject's permission set for it.
func (m Middleware) effectiveSet(r *http.Request) (PermissionSet, error) {
	subjectID, ok := m.currentSubjectID(r)
	if !ok {
		return PermissionSet{}, httpx.ErrForbidden
	}

	var active tenancy.Context
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		scope, id := sess.ActiveContext()
		if parsed, err := tenancy.ParseScope(scope); err == nil {
			active = tenancy.Context{Scope: parsed, ID: id}
		}
	}

	res, err := m.Contexts.Resolve(r.Context(), subjectID, active, false)
	if err != nil {
		return PermissionSet{}, err
	}
	return m.Permissions.EffectivePermissions(r.Context(), subjectID, res.Context, res.IsAdministrator)
}

func (m Middleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.Error("rbac guard", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (m Middleware) currentSubjectID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse subject id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
