package navigation

import (
	"fmt"
	"sort"

	"github.com/meridian-hq/meridian/internal/rbac"
	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

// BuildForest materializes the permission-filtered navigation forest from
// the flat node set. Children lists are built in a single grouping pass and
// siblings sorted by (sort_order, name), so the output is deterministic for
// fixed inputs and the whole build is O(N log N).
//
// Filtering is top-down: a node excluded by the predicate drops its entire
// subtree, but an included node keeps its place even when every child is
// filtered out — a section with a direct action stays visible with empty
// children.
func BuildForest(nodes []Node, perms rbac.PermissionSet, tctx tenancy.Context, isAdministrator bool) []*TreeNode {
	var roots []Node
	byParent := make(map[int64][]Node, len(nodes))
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		byParent[*n.ParentID] = append(byParent[*n.ParentID], n)
	}
	sortSiblings(roots)
	for _, group := range byParent {
		sortSiblings(group)
	}

	var build func(n Node) *TreeNode
	build = func(n Node) *TreeNode {
		if !includable(n, perms, tctx, isAdministrator) {
			return nil
		}
		t := &TreeNode{Node: n, Children: []*TreeNode{}}
		for _, child := range byParent[n.ID] {
			if sub := build(child); sub != nil {
				t.Children = append(t.Children, sub)
			}
		}
		return t
	}

	forest := make([]*TreeNode, 0, len(roots))
	for _, n := range roots {
		if t := build(n); t != nil {
			forest = append(forest, t)
		}
	}
	return forest
}

// includable composes the three filter rules for a single node:
// visibility flags, permission membership, context scoping. Administrators
// bypass everything past the visibility flags.
func includable(n Node, perms rbac.PermissionSet, tctx tenancy.Context, isAdministrator bool) bool {
	if !n.IsActive || !n.IsVisible || !n.VisibleInMenu {
		return false
	}
	if isAdministrator {
		return true
	}
	if n.PermissionName != nil && !perms.Has(*n.PermissionName) {
		return false
	}
	if n.EstablishmentSpecific && tctx.Scope != tenancy.ScopeEstablishment {
		return false
	}
	if n.CompanySpecific && tctx.Scope != tenancy.ScopeCompany && tctx.Scope != tenancy.ScopeEstablishment {
		return false
	}
	return true
}

func sortSiblings(group []Node) {
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].SortOrder != group[j].SortOrder {
			return group[i].SortOrder < group[j].SortOrder
		}
		return group[i].Name < group[j].Name
	})
}

// ValidateForest asserts the parent graph is acyclic. Cycle prevention on
// reparenting belongs to the node CRUD layer; this is the safety net run
// before tree assembly and by the integrity scan job.
func ValidateForest(nodes []Node) error {
	parent := make(map[int64]int64, len(nodes))
	for _, n := range nodes {
		if n.ParentID != nil {
			parent[n.ID] = *n.ParentID
		}
	}
	safe := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		if safe[n.ID] {
			continue
		}
		visiting := make(map[int64]bool)
		id := n.ID
		for {
			if visiting[id] {
				return fmt.Errorf("%w: node %d", shared.ErrCycleDetected, id)
			}
			visiting[id] = true
			next, ok := parent[id]
			if !ok || safe[next] {
				break
			}
			id = next
		}
		for v := range visiting {
			safe[v] = true
		}
	}
	return nil
}
