package rbac

import (
	"context"
	"fmt"

	"github.com/meridian-hq/meridian/internal/shared"
	"github.com/meridian-hq/meridian/internal/tenancy"
)

// PermissionStore is the backing primitive answering permission questions.
// Implementations must be side-effect free; failures are infrastructure
// errors, never "no permissions".
type PermissionStore interface {
	ListPermissions(ctx context.Context, subjectID int64, scope tenancy.Scope, contextID int64) ([]string, error)
	HasPermission(ctx context.Context, subjectID int64, name string, scope tenancy.Scope, contextID int64) (bool, error)
}

// Resolver computes effective permission sets. Stateless per call; callers
// memoize results through the navigation resolution cache.
type Resolver struct {
	store PermissionStore
}

// NewResolver builds Resolver instance.
func NewResolver(store PermissionStore) *Resolver {
	return &Resolver{store: store}
}

// EffectivePermissions returns the permission set for (subject, context).
// Administrators receive the all-permissions sentinel without touching the
// store. Store failures are wrapped as shared.ErrResolutionUnavailable so an
// outage is never mistaken for an empty set.
func (r *Resolver) EffectivePermissions(ctx context.Context, subjectID int64, tctx tenancy.Context, isAdministrator bool) (PermissionSet, error) {
	if isAdministrator {
		return AllPermissions(), nil
	}
	tctx = tctx.Normalize()
	names, err := r.store.ListPermissions(ctx, subjectID, tctx.Scope, tctx.ID)
	if err != nil {
		return PermissionSet{}, fmt.Errorf("rbac: list permissions: %w: %v", shared.ErrResolutionUnavailable, err)
	}
	return NewPermissionSet(names...), nil
}

// HasPermission answers a single permission check without materializing the
// full set.
func (r *Resolver) HasPermission(ctx context.Context, subjectID int64, name string, tctx tenancy.Context, isAdministrator bool) (bool, error) {
	if isAdministrator {
		return true, nil
	}
	tctx = tctx.Normalize()
	granted, err := r.store.HasPermission(ctx, subjectID, name, tctx.Scope, tctx.ID)
	if err != nil {
		return false, fmt.Errorf("rbac: has permission: %w: %v", shared.ErrResolutionUnavailable, err)
	}
	return granted, nil
}
