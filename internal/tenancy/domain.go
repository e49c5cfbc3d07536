package tenancy

import "fmt"

// Scope identifies the level a context or role assignment applies to.
type Scope string

const (
	// ScopeNone is the system-wide scope. Assignments carrying it are global.
	ScopeNone Scope = "none"
	// ScopeCompany scopes to a single company tenant.
	ScopeCompany Scope = "company"
	// ScopeEstablishment scopes to a single establishment within a company.
	ScopeEstablishment Scope = "establishment"
)

// ParseScope validates a raw scope string. The empty string parses to ScopeNone.
func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeNone, "":
		return ScopeNone, nil
	case ScopeCompany:
		return ScopeCompany, nil
	case ScopeEstablishment:
		return ScopeEstablishment, nil
	}
	return "", fmt.Errorf("tenancy: unknown scope %q", raw)
}

// Context is the active tenant scope a subject is operating under.
type Context struct {
	Scope Scope `json:"scope"`
	ID    int64 `json:"id"`
}

// None returns the system-wide context.
func None() Context {
	return Context{Scope: ScopeNone}
}

// IsNone reports whether the context is system-wide.
func (c Context) IsNone() bool {
	return c.Scope == ScopeNone || c.Scope == ""
}

// Normalize maps the zero value and ScopeNone variants onto None().
func (c Context) Normalize() Context {
	if c.IsNone() {
		return None()
	}
	return c
}

func (c Context) String() string {
	if c.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%s:%d", c.Scope, c.ID)
}

// Subject is the authenticated actor permissions are resolved for.
type Subject struct {
	ID              int64
	IsActive        bool
	IsAdministrator bool
}

// AssignmentContext is the context attached to one active role assignment.
// CompanyID carries the owning company for establishment-scoped assignments
// so subsumption checks need no further lookups; it is zero otherwise.
type AssignmentContext struct {
	RoleID    int64
	Scope     Scope
	ContextID int64
	CompanyID int64
}

// Context returns the assignment's own context, used as a fallback home
// context when a requested context matches nothing.
func (a AssignmentContext) Context() Context {
	if a.Scope == ScopeNone {
		return None()
	}
	return Context{Scope: a.Scope, ID: a.ContextID}
}

// Covers reports whether the assignment matches or subsumes the requested
// context. requestedCompany is the owning company of a requested
// establishment context, zero otherwise.
func (a AssignmentContext) Covers(requested Context, requestedCompany int64) bool {
	switch a.Scope {
	case ScopeNone:
		return true
	case ScopeCompany:
		if requested.Scope == ScopeCompany {
			return requested.ID == a.ContextID
		}
		if requested.Scope == ScopeEstablishment {
			return requestedCompany != 0 && requestedCompany == a.ContextID
		}
		return false
	case ScopeEstablishment:
		return requested.Scope == ScopeEstablishment && requested.ID == a.ContextID
	}
	return false
}

// Subsumes reports whether this assignment's context contains the other's:
// global contains everything, a company contains itself and its
// establishments, an establishment contains only itself.
func (a AssignmentContext) Subsumes(b AssignmentContext) bool {
	switch a.Scope {
	case ScopeNone:
		return true
	case ScopeCompany:
		if b.Scope == ScopeCompany {
			return b.ContextID == a.ContextID
		}
		if b.Scope == ScopeEstablishment {
			return b.CompanyID != 0 && b.CompanyID == a.ContextID
		}
		return false
	case ScopeEstablishment:
		return b.Scope == ScopeEstablishment && b.ContextID == a.ContextID
	}
	return false
}

// Resolution is the outcome of normalizing a requested context for a subject.
type Resolution struct {
	Context         Context `json:"context"`
	IsAdministrator bool    `json:"is_administrator"`
	// Fallback is true when the requested context matched no assignment and
	// the subject's home context was substituted instead.
	Fallback bool `json:"fallback"`
}
