package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hq/meridian/internal/tenancy"
)

// Store is the PostgreSQL permission store primitive. Both queries are
// idempotent reads; infrastructure failures surface raw and are classified
// by the resolver.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the provided pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// assignmentContextFilter matches assignments that are global, exactly
// scoped to the requested context, or company-scoped over the requested
// establishment's owning company.
const assignmentContextFilter = `
	ra.status = 'active'
	AND ra.deleted_at IS NULL
	AND (
		ra.context_scope = 'none'
		OR (ra.context_scope = $2 AND ra.context_id = $3)
		OR (
			$2 = 'establishment'
			AND ra.context_scope = 'company'
			AND ra.context_id = (SELECT company_id FROM establishments WHERE id = $3)
		)
	)`

// ListPermissions returns the deduplicated permission names granted to the
// subject in the given context.
func (s *Store) ListPermissions(ctx context.Context, subjectID int64, scope tenancy.Scope, contextID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id AND r.status = 'active'
		JOIN role_permissions rp ON rp.role_id = ra.role_id
		JOIN permissions p ON p.id = rp.permission_id AND p.is_active
		WHERE ra.user_id = $1 AND `+assignmentContextFilter+`
		ORDER BY p.name`,
		subjectID, string(scope), contextID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// HasPermission reports whether the subject holds one permission in the
// given context.
func (s *Store) HasPermission(ctx context.Context, subjectID int64, name string, scope tenancy.Scope, contextID int64) (bool, error) {
	var granted bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_assignments ra
			JOIN roles r ON r.id = ra.role_id AND r.status = 'active'
			JOIN role_permissions rp ON rp.role_id = ra.role_id
			JOIN permissions p ON p.id = rp.permission_id AND p.is_active
			WHERE ra.user_id = $1 AND `+assignmentContextFilter+`
				AND p.name = $4
		)`,
		subjectID, string(scope), contextID, name,
	).Scan(&granted)
	if err != nil {
		return false, err
	}
	return granted, nil
}
