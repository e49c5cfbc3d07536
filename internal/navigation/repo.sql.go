package navigation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hq/meridian/internal/platform/db"
	"github.com/meridian-hq/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for menu nodes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const nodeColumns = `id, parent_id, name, slug, url, icon, level, sort_order,
	permission_name, COALESCE(badge_text, ''), COALESCE(badge_variant, ''),
	is_active, is_visible, visible_in_menu, company_specific, establishment_specific`

func scanNode(row pgx.Row) (Node, error) {
	var n Node
	err := row.Scan(
		&n.ID, &n.ParentID, &n.Name, &n.Slug, &n.URL, &n.Icon, &n.Level, &n.SortOrder,
		&n.PermissionName, &n.Badge.Text, &n.Badge.Variant,
		&n.IsActive, &n.IsVisible, &n.VisibleInMenu, &n.CompanySpecific, &n.EstablishmentSpecific,
	)
	return n, err
}

func (r *Repository) queryNodes(ctx context.Context, query string, args ...any) ([]Node, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListActiveNodes returns the flat set of active, non-deleted nodes the tree
// builder filters from. Bounded dataset, refreshed on every resolution.
func (r *Repository) ListActiveNodes(ctx context.Context) ([]Node, error) {
	return r.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM menu_nodes
		WHERE deleted_at IS NULL AND is_active
		ORDER BY level, sort_order, name`)
}

// ListAllNodes returns every non-deleted node, inactive ones included. Used
// by the integrity scan.
func (r *Repository) ListAllNodes(ctx context.Context) ([]Node, error) {
	return r.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM menu_nodes
		WHERE deleted_at IS NULL
		ORDER BY id`)
}

// GetNode fetches a single node, reporting soft-deleted and missing nodes as
// shared.ErrNodeNotFound.
func (r *Repository) GetNode(ctx context.Context, id int64) (Node, error) {
	n, err := scanNode(r.pool.QueryRow(ctx, `
		SELECT `+nodeColumns+`
		FROM menu_nodes
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Node{}, shared.ErrNodeNotFound
		}
		return Node{}, err
	}
	return n, nil
}

// ListSiblings returns the sibling group sharing parentID, ordered by
// (sort_order, name). A nil parentID selects the root group.
func (r *Repository) ListSiblings(ctx context.Context, parentID *int64) ([]Node, error) {
	return r.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM menu_nodes
		WHERE deleted_at IS NULL AND parent_id IS NOT DISTINCT FROM $1
		ORDER BY sort_order, name`,
		parentID)
}

// SwapSortOrder exchanges the sort_order of two siblings in one transaction.
// Node a is parked on a temporary slot first so the per-group unique index
// never observes a duplicate mid-swap. A unique violation means another
// writer won the race and surfaces as ErrConcurrentMove.
func (r *Repository) SwapSortOrder(ctx context.Context, a, b Node) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE menu_nodes SET sort_order = -1, updated_at = now() WHERE id = $1 AND sort_order = $2`,
			a.ID, a.SortOrder,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE menu_nodes SET sort_order = $2, updated_at = now() WHERE id = $1`,
			b.ID, a.SortOrder,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE menu_nodes SET sort_order = $2, updated_at = now() WHERE id = $1`,
			a.ID, b.SortOrder,
		); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConcurrentMove
		}
		return err
	}
	return nil
}
