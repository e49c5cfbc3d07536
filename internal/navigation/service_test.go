package navigation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-hq/meridian/internal/rbac"
	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

type stubTenancyRepo struct {
	subject     tenancy.Subject
	subjectErr  error
	assignments []tenancy.AssignmentContext
}

func (s *stubTenancyRepo) FindSubject(ctx context.Context, id int64) (tenancy.Subject, error) {
	if s.subjectErr != nil {
		return tenancy.Subject{}, s.subjectErr
	}
	return s.subject, nil
}

func (s *stubTenancyRepo) ListAssignmentContexts(ctx context.Context, subjectID int64) ([]tenancy.AssignmentContext, error) {
	return s.assignments, nil
}

func (s *stubTenancyRepo) EstablishmentCompany(ctx context.Context, establishmentID int64) (int64, error) {
	return 0, nil
}

type stubPermissionStore struct {
	names []string
}

func (s *stubPermissionStore) ListPermissions(ctx context.Context, subjectID int64, scope tenancy.Scope, contextID int64) ([]string, error) {
	return s.names, nil
}

func (s *stubPermissionStore) HasPermission(ctx context.Context, subjectID int64, name string, scope tenancy.Scope, contextID int64) (bool, error) {
	return false, nil
}

type stubNodeRepo struct {
	nodes []Node
	err   error
	calls int
}

func (s *stubNodeRepo) ListActiveNodes(ctx context.Context) ([]Node, error) {
	s.calls++
	return s.nodes, s.err
}

func newTestService(t *testing.T, tenancyRepo *stubTenancyRepo, nodes *stubNodeRepo) (*Service, func()) {
	t.Helper()
	cache, _, cleanup := newTestCache(t, time.Minute)
	svc := NewService(
		nodes,
		tenancy.NewResolver(tenancyRepo),
		rbac.NewResolver(&stubPermissionStore{names: []string{"reports.view"}}),
		cache,
	)
	return svc, cleanup
}

func TestResolveTreeFiltersByPermission(t *testing.T) {
	repo := &stubTenancyRepo{
		subject: tenancy.Subject{ID: 2, IsActive: true},
		assignments: []tenancy.AssignmentContext{
			{RoleID: 1, Scope: tenancy.ScopeCompany, ContextID: 1},
		},
	}
	nodes := &stubNodeRepo{nodes: []Node{
		node(1, nil, "reports", 1, "reports.view"),
		node(2, nil, "admin", 2, "users.edit"),
	}}
	svc, cleanup := newTestService(t, repo, nodes)
	defer cleanup()

	tree, err := svc.ResolveTree(context.Background(), 2, tenancy.Context{Scope: tenancy.ScopeCompany, ID: 1}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := flatten(tree.Roots)
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected only node 1, got %v", ids)
	}
}

func TestResolveTreeStampsFallbackPerCall(t *testing.T) {
	repo := &stubTenancyRepo{
		subject: tenancy.Subject{ID: 2, IsActive: true},
		assignments: []tenancy.AssignmentContext{
			{RoleID: 1, Scope: tenancy.ScopeCompany, ContextID: 1},
		},
	}
	nodes := &stubNodeRepo{nodes: []Node{node(1, nil, "reports", 1, "")}}
	svc, cleanup := newTestService(t, repo, nodes)
	defer cleanup()

	home := tenancy.Context{Scope: tenancy.ScopeCompany, ID: 1}

	// Matching request: no fallback.
	tree, err := svc.ResolveTree(context.Background(), 2, home, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Fallback {
		t.Fatal("matching request must not be a fallback")
	}

	// Unmatched request lands on the same home context — same cache entry —
	// but must carry the fallback flag.
	tree, err = svc.ResolveTree(context.Background(), 2, tenancy.Context{Scope: tenancy.ScopeCompany, ID: 9}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tree.Fallback {
		t.Fatal("unmatched request must be flagged as fallback")
	}
	if tree.Context != home {
		t.Fatalf("expected home context, got %v", tree.Context)
	}
	if nodes.calls != 1 {
		t.Fatalf("expected the cached tree to be reused, got %d builds", nodes.calls)
	}
}

func TestResolveTreeEmptyForestIsNotAnError(t *testing.T) {
	repo := &stubTenancyRepo{subject: tenancy.Subject{ID: 5, IsActive: true}}
	nodes := &stubNodeRepo{nodes: []Node{node(1, nil, "admin", 1, "users.edit")}}
	svc, cleanup := newTestService(t, repo, nodes)
	defer cleanup()

	tree, err := svc.ResolveTree(context.Background(), 5, tenancy.None(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Roots) != 0 {
		t.Fatalf("expected empty forest, got %v", flatten(tree.Roots))
	}
}

func TestResolveTreeSubjectErrors(t *testing.T) {
	repo := &stubTenancyRepo{subjectErr: shared.ErrSubjectNotFound}
	nodes := &stubNodeRepo{}
	svc, cleanup := newTestService(t, repo, nodes)
	defer cleanup()

	_, err := svc.ResolveTree(context.Background(), 9, tenancy.None(), false)
	if !errors.Is(err, shared.ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
	if nodes.calls != 0 {
		t.Fatal("resolution failure must not trigger a build")
	}
}

func TestResolveTreeNodeLoadFailureIsRetryable(t *testing.T) {
	repo := &stubTenancyRepo{subject: tenancy.Subject{ID: 2, IsActive: true}}
	nodes := &stubNodeRepo{err: errors.New("connection refused")}
	svc, cleanup := newTestService(t, repo, nodes)
	defer cleanup()

	_, err := svc.ResolveTree(context.Background(), 2, tenancy.None(), false)
	if !errors.Is(err, shared.ErrResolutionUnavailable) {
		t.Fatalf("expected ErrResolutionUnavailable, got %v", err)
	}
}
