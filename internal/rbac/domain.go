package rbac

import (
	"sort"
	"strings"
	"time"

	"github.com/meridian-hq/meridian/internal/tenancy"
)

// Role represents a high-level permission grouping.
type Role struct {
	ID        int64
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Permission represents an atomic capability, named with dot namespaces
// such as "users.view".
type Permission struct {
	ID       int64
	Name     string
	IsActive bool
}

// RoleAssignment ties a subject to a role within a tenancy context.
type RoleAssignment struct {
	UserID    int64
	RoleID    int64
	Scope     tenancy.Scope
	ContextID int64
	Status    string
	CreatedAt time.Time
}

// PermissionSet is the effective, deduplicated permission-name set resolved
// for a (subject, context) pair. The administrator sentinel short-circuits
// every membership test.
type PermissionSet struct {
	all   bool
	names map[string]struct{}
}

// NewPermissionSet builds a set from permission names. Names are trimmed and
// lowercased; empty names are dropped.
func NewPermissionSet(names ...string) PermissionSet {
	set := PermissionSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = normalizeName(name)
		if name == "" {
			continue
		}
		set.names[name] = struct{}{}
	}
	return set
}

// AllPermissions returns the administrator sentinel set.
func AllPermissions() PermissionSet {
	return PermissionSet{all: true}
}

// IsAll reports whether the set is the administrator sentinel.
func (s PermissionSet) IsAll() bool {
	return s.all
}

// Has reports membership. Always true for the administrator sentinel.
func (s PermissionSet) Has(name string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[normalizeName(name)]
	return ok
}

// Len returns the number of explicit names. Zero for the sentinel.
func (s PermissionSet) Len() int {
	return len(s.names)
}

// Names returns the explicit permission names in sorted order, nil for the
// administrator sentinel. Sorting keeps downstream output deterministic.
func (s PermissionSet) Names() []string {
	if s.all || len(s.names) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
