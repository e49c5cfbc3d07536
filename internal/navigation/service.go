package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-hq/meridian/internal/rbac"
	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

// NodeRepository defines data access methods for tree resolution.
type NodeRepository interface {
	ListActiveNodes(ctx context.Context) ([]Node, error)
}

// Service resolves permission-filtered navigation trees. Resolution flows
// context normalization → effective permission set → cached tree build.
type Service struct {
	nodes       NodeRepository
	contexts    *tenancy.Resolver
	permissions *rbac.Resolver
	cache       *ResolutionCache
}

// NewService builds Service instance.
func NewService(nodes NodeRepository, contexts *tenancy.Resolver, permissions *rbac.Resolver, cache *ResolutionCache) *Service {
	return &Service{nodes: nodes, contexts: contexts, permissions: permissions, cache: cache}
}

// ResolveTree returns the navigation forest the subject sees in the
// requested context. An empty forest is a legitimate outcome of filtering;
// failures surface as typed errors so callers can fall back deliberately.
func (s *Service) ResolveTree(ctx context.Context, subjectID int64, requested tenancy.Context, actAsAdministrator bool) (*ResolvedTree, error) {
	res, err := s.contexts.Resolve(ctx, subjectID, requested, actAsAdministrator)
	if err != nil {
		return nil, err
	}

	tree, err := s.cache.GetOrBuild(ctx, subjectID, res.Context, func(ctx context.Context) (*ResolvedTree, error) {
		perms, err := s.permissions.EffectivePermissions(ctx, subjectID, res.Context, res.IsAdministrator)
		if err != nil {
			return nil, err
		}
		nodes, err := s.nodes.ListActiveNodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("navigation: list nodes: %w: %v", shared.ErrResolutionUnavailable, err)
		}
		if err := ValidateForest(nodes); err != nil {
			return nil, err
		}
		return &ResolvedTree{
			Context:         res.Context,
			IsAdministrator: res.IsAdministrator,
			Roots:           BuildForest(nodes, perms, res.Context, res.IsAdministrator),
			ResolvedAt:      time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	// Fallback depends on what was requested, not on the resolved context,
	// so it is stamped per call rather than cached. Copy to keep the cached
	// value shared by concurrent waiters immutable.
	out := *tree
	out.Fallback = res.Fallback
	return &out, nil
}
