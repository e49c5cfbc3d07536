package navigation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/meridian-hq/meridian/internal/rbac"
	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

func node(id int64, parentID *int64, name string, order int, perm string) Node {
	n := Node{
		ID:            id,
		ParentID:      parentID,
		Name:          name,
		Slug:          name,
		SortOrder:     order,
		IsActive:      true,
		IsVisible:     true,
		VisibleInMenu: true,
	}
	if perm != "" {
		n.PermissionName = &perm
	}
	return n
}

func ptr(v int64) *int64 { return &v }

func flatten(forest []*TreeNode) []int64 {
	var ids []int64
	var walk func(nodes []*TreeNode)
	walk = func(nodes []*TreeNode) {
		for _, n := range nodes {
			ids = append(ids, n.ID)
			walk(n.Children)
		}
	}
	walk(forest)
	return ids
}

func TestBuildForestOrdersSiblings(t *testing.T) {
	nodes := []Node{
		node(3, nil, "gamma", 2, ""),
		node(1, nil, "alpha", 1, ""),
		node(2, nil, "beta", 2, ""),
	}
	forest := BuildForest(nodes, rbac.NewPermissionSet(), tenancy.None(), false)
	got := flatten(forest)
	want := []int64{1, 2, 3} // sort_order first, name breaks the tie
	if len(got) != len(want) {
		t.Fatalf("expected %d nodes, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestBuildForestIsDeterministic(t *testing.T) {
	nodes := []Node{
		node(1, nil, "reports", 1, ""),
		node(2, ptr(1), "company", 1, ""),
		node(3, ptr(1), "branch", 1, ""),
		node(4, nil, "admin", 2, ""),
	}
	a, _ := json.Marshal(BuildForest(nodes, rbac.NewPermissionSet(), tenancy.None(), false))
	b, _ := json.Marshal(BuildForest(nodes, rbac.NewPermissionSet(), tenancy.None(), false))
	if string(a) != string(b) {
		t.Fatalf("two builds over the same input differ:\n%s\n%s", a, b)
	}
}

func TestBuildForestFiltersTopDown(t *testing.T) {
	nodes := []Node{
		node(1, nil, "admin", 1, "admin.view"),
		node(2, ptr(1), "users", 1, "users.view"),
		node(3, ptr(1), "roles", 2, "roles.view"),
	}

	// Subject holds the child permission but not the parent's: the whole
	// subtree disappears.
	forest := BuildForest(nodes, rbac.NewPermissionSet("users.view"), tenancy.None(), false)
	if len(forest) != 0 {
		t.Fatalf("expected empty forest, got %v", flatten(forest))
	}

	// Parent permitted, every child filtered: parent stays with empty children.
	forest = BuildForest(nodes, rbac.NewPermissionSet("admin.view"), tenancy.None(), false)
	if len(forest) != 1 || forest[0].ID != 1 {
		t.Fatalf("expected root 1 only, got %v", flatten(forest))
	}
	if forest[0].Children == nil || len(forest[0].Children) != 0 {
		t.Fatalf("expected empty non-nil children, got %#v", forest[0].Children)
	}
}

func TestBuildForestAdministratorBypassesPermissions(t *testing.T) {
	hidden := node(2, nil, "secret", 2, "secret.view")
	hidden.IsVisible = false
	nodes := []Node{
		node(1, nil, "ops", 1, "ops.view"),
		hidden,
	}
	forest := BuildForest(nodes, rbac.AllPermissions(), tenancy.None(), true)
	got := flatten(forest)
	// Visibility flags still apply to administrators.
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only node 1, got %v", got)
	}
}

func TestBuildForestScopeFiltering(t *testing.T) {
	company := node(1, nil, "company-summary", 1, "")
	company.CompanySpecific = true
	estab := node(2, nil, "branch-activity", 2, "")
	estab.EstablishmentSpecific = true
	nodes := []Node{company, estab}
	perms := rbac.NewPermissionSet()

	cases := []struct {
		name string
		tctx tenancy.Context
		want []int64
	}{
		{"none scope hides both", tenancy.None(), nil},
		{"company scope shows company only", tenancy.Context{Scope: tenancy.ScopeCompany, ID: 1}, []int64{1}},
		{"establishment scope shows both", tenancy.Context{Scope: tenancy.ScopeEstablishment, ID: 10}, []int64{1, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := flatten(BuildForest(nodes, perms, tc.tctx, false))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestBuildForestScopingIsMonotonic(t *testing.T) {
	// Everything visible at a narrower scope includes what the broader scope
	// shows for the same permissions.
	company := node(1, nil, "company", 1, "")
	company.CompanySpecific = true
	plain := node(2, nil, "common", 2, "")
	nodes := []Node{company, plain}
	perms := rbac.NewPermissionSet()

	noneIDs := flatten(BuildForest(nodes, perms, tenancy.None(), false))
	companyIDs := flatten(BuildForest(nodes, perms, tenancy.Context{Scope: tenancy.ScopeCompany, ID: 1}, false))

	seen := make(map[int64]bool, len(companyIDs))
	for _, id := range companyIDs {
		seen[id] = true
	}
	for _, id := range noneIDs {
		if !seen[id] {
			t.Fatalf("node %d visible at none scope but not at company scope", id)
		}
	}
}

func TestValidateForestDetectsCycle(t *testing.T) {
	nodes := []Node{
		node(1, ptr(3), "a", 1, ""),
		node(2, ptr(1), "b", 1, ""),
		node(3, ptr(2), "c", 1, ""),
	}
	err := ValidateForest(nodes)
	if !errors.Is(err, shared.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestValidateForestAcceptsForest(t *testing.T) {
	nodes := []Node{
		node(1, nil, "a", 1, ""),
		node(2, ptr(1), "b", 1, ""),
		node(3, ptr(2), "c", 1, ""),
		node(4, nil, "d", 2, ""),
	}
	if err := ValidateForest(nodes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
