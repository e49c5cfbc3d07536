package tenancy

import (
	"context"
)

// Gate answers hierarchical data-access questions: whether one subject may
// see another subject's records. It applies the same subsumption rule as
// context resolution — a company assignment covers the company's
// establishments, a global assignment covers everything.
type Gate struct {
	repo RepositoryPort
}

// NewGate builds Gate instance.
func NewGate(repo RepositoryPort) *Gate {
	return &Gate{repo: repo}
}

// CanAccess reports whether actor may access target's data. Administrators
// and self-access always pass; otherwise at least one of the actor's
// assignment contexts must subsume one of the target's.
func (g *Gate) CanAccess(ctx context.Context, actorID, targetID int64) (bool, error) {
	if actorID == targetID {
		return true, nil
	}

	actor, err := g.repo.FindSubject(ctx, actorID)
	if err != nil {
		return false, infraWrap("find actor", err)
	}
	if actor.IsAdministrator {
		return true, nil
	}

	if _, err := g.repo.FindSubject(ctx, targetID); err != nil {
		return false, infraWrap("find target", err)
	}

	actorContexts, err := g.repo.ListAssignmentContexts(ctx, actorID)
	if err != nil {
		return false, infraWrap("list actor assignments", err)
	}
	targetContexts, err := g.repo.ListAssignmentContexts(ctx, targetID)
	if err != nil {
		return false, infraWrap("list target assignments", err)
	}

	for _, ac := range actorContexts {
		for _, tc := range targetContexts {
			if ac.Subsumes(tc) {
				return true, nil
			}
		}
	}
	return false, nil
}
