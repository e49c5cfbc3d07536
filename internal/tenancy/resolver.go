package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-hq/meridian/internal/shared"
)

// RepositoryPort defines data access methods for context resolution.
type RepositoryPort interface {
	FindSubject(ctx context.Context, id int64) (Subject, error)
	ListAssignmentContexts(ctx context.Context, subjectID int64) ([]AssignmentContext, error)
	EstablishmentCompany(ctx context.Context, establishmentID int64) (int64, error)
}

// Resolver validates and normalizes a requested context against a subject's
// assignments. Pure read, no side effects.
type Resolver struct {
	repo RepositoryPort
}

// NewResolver builds Resolver instance.
func NewResolver(repo RepositoryPort) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the context the subject will operate under.
//
// Administrators bypass scoping and keep the requested context as-is; the
// actAsAdministrator flag is honored only when the subject truly is one.
// For regular subjects a requested context matched or subsumed by an active
// assignment is kept; otherwise the subject's home context (first active
// assignment) is substituted and Fallback is set so callers can surface the
// switch.
func (r *Resolver) Resolve(ctx context.Context, subjectID int64, requested Context, actAsAdministrator bool) (Resolution, error) {
	requested = requested.Normalize()

	subject, err := r.repo.FindSubject(ctx, subjectID)
	if err != nil {
		return Resolution{}, infraWrap("find subject", err)
	}

	// actAsAdministrator from an impostor is ignored rather than rejected;
	// true administrators bypass scoping whether or not they ask to.
	if subject.IsAdministrator {
		return Resolution{Context: requested, IsAdministrator: true}, nil
	}

	assignments, err := r.repo.ListAssignmentContexts(ctx, subjectID)
	if err != nil {
		return Resolution{}, infraWrap("list assignments", err)
	}

	var requestedCompany int64
	if requested.Scope == ScopeEstablishment {
		requestedCompany, err = r.repo.EstablishmentCompany(ctx, requested.ID)
		if err != nil {
			return Resolution{}, infraWrap("establishment company", err)
		}
	}

	for _, a := range assignments {
		if a.Covers(requested, requestedCompany) {
			return Resolution{Context: requested}, nil
		}
	}

	// Requested context matches nothing: keep navigation usable by falling
	// back to the subject's home context instead of failing.
	if len(assignments) > 0 {
		home := assignments[0].Context()
		return Resolution{Context: home, Fallback: home != requested}, nil
	}
	return Resolution{Context: None(), Fallback: !requested.IsNone()}, nil
}

// infraWrap keeps sentinel errors intact and marks everything else as a
// retryable resolution failure.
func infraWrap(op string, err error) error {
	if errors.Is(err, shared.ErrSubjectNotFound) {
		return err
	}
	return fmt.Errorf("tenancy: %s: %w: %v", op, shared.ErrResolutionUnavailable, err)
}
