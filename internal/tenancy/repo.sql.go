package tenancy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hq/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindSubject loads a subject by ID. Inactive and soft-deleted subjects are
// reported as shared.ErrSubjectNotFound.
func (r *Repository) FindSubject(ctx context.Context, id int64) (Subject, error) {
	var subject Subject
	err := r.pool.QueryRow(ctx,
		`SELECT id, is_active, is_admin FROM users WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&subject.ID, &subject.IsActive, &subject.IsAdministrator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, shared.ErrSubjectNotFound
		}
		return Subject{}, err
	}
	if !subject.IsActive {
		return Subject{}, shared.ErrSubjectNotFound
	}
	return subject, nil
}

// ListAssignmentContexts returns the contexts of the subject's effective role
// assignments: status active, not soft-deleted, role active. Ordered by
// creation so the first row is the subject's home context.
func (r *Repository) ListAssignmentContexts(ctx context.Context, subjectID int64) ([]AssignmentContext, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ra.role_id, ra.context_scope, COALESCE(ra.context_id, 0), COALESCE(e.company_id, 0)
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id AND r.status = 'active'
		LEFT JOIN establishments e
			ON ra.context_scope = 'establishment' AND e.id = ra.context_id
		WHERE ra.user_id = $1
			AND ra.status = 'active'
			AND ra.deleted_at IS NULL
		ORDER BY ra.created_at, ra.id`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []AssignmentContext
	for rows.Next() {
		var a AssignmentContext
		var scope string
		if err := rows.Scan(&a.RoleID, &scope, &a.ContextID, &a.CompanyID); err != nil {
			return nil, err
		}
		a.Scope = Scope(scope)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// EstablishmentCompany returns the owning company of an establishment,
// zero when the establishment does not exist.
func (r *Repository) EstablishmentCompany(ctx context.Context, establishmentID int64) (int64, error) {
	var companyID int64
	err := r.pool.QueryRow(ctx,
		`SELECT company_id FROM establishments WHERE id = $1`,
		establishmentID,
	).Scan(&companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return companyID, nil
}
