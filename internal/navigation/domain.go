package navigation

import (
	"errors"
	"time"

	"github.com/meridian-hq/meridian/internal/tenancy"
)

// Node is one row of the navigation forest. The parent pointer graph must
// stay acyclic; sort_order is unique within a sibling group; Level is the
// cached depth (0 for roots, parent.Level+1 otherwise).
type Node struct {
	ID                    int64   `json:"id"`
	ParentID              *int64  `json:"parent_id"`
	Name                  string  `json:"name"`
	Slug                  string  `json:"slug"`
	URL                   string  `json:"url"`
	Icon                  string  `json:"icon"`
	Level                 int     `json:"level"`
	SortOrder             int     `json:"sort_order"`
	PermissionName        *string `json:"permission_name"`
	Badge                 Badge   `json:"badge"`
	IsActive              bool    `json:"-"`
	IsVisible             bool    `json:"-"`
	VisibleInMenu         bool    `json:"-"`
	CompanySpecific       bool    `json:"-"`
	EstablishmentSpecific bool    `json:"-"`
}

// Badge carries optional badge metadata rendered next to a menu entry.
type Badge struct {
	Text    string `json:"text,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// TreeNode is a node annotated with its filtered, ordered children.
type TreeNode struct {
	Node
	Children []*TreeNode `json:"children"`
}

// ResolvedTree is the materialized navigation for one (subject, context)
// pair. It is the unit stored in the resolution cache.
type ResolvedTree struct {
	Context         tenancy.Context `json:"context"`
	IsAdministrator bool            `json:"is_administrator"`
	Fallback        bool            `json:"fallback"`
	Roots           []*TreeNode     `json:"tree"`
	ResolvedAt      time.Time       `json:"resolved_at"`
}

// Direction selects which adjacent sibling a move swaps with.
type Direction string

const (
	// DirectionUp swaps with the previous sibling.
	DirectionUp Direction = "up"
	// DirectionDown swaps with the next sibling.
	DirectionDown Direction = "down"
)

// MoveResult reports the outcome of a sibling move. A move at the boundary
// is a no-op, not an error.
type MoveResult struct {
	NoChange bool   `json:"no_change"`
	Siblings []Node `json:"siblings,omitempty"`
}

// ErrConcurrentMove indicates a sibling swap lost a race against another
// writer (unique sort_order violation). Retryable.
var ErrConcurrentMove = errors.New("navigation: concurrent sibling move")
