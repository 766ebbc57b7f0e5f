package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
)

// PermissionRepo implements PermissionRepository using PostgreSQL.
type PermissionRepo struct{ db *DB }

// NewPermissionRepo constructs a permission repository.
func NewPermissionRepo(db *DB) *PermissionRepo { return &PermissionRepo{db: db} }

// isForeignKeyViolation reports whether the error is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23503"
}

// Grant upserts the single grant row for (node, group). Regranting replaces
// the level in place. The node FK covers soft-deleted nodes too: grants
// survive soft delete and vanish only with the row itself.
func (r *PermissionRepo) Grant(ctx context.Context, grant *model.PermissionGrant) (err error) {
	if grant.ID == uuid.Nil {
		if grant.ID, err = uuid.NewV4(); err != nil {
			return err
		}
	}
	const q = `
INSERT INTO document_node_group_permissions (id, node_id, group_id, level, created_at)
VALUES ($1,$2,$3,$4,now())
ON CONFLICT (node_id, group_id) DO UPDATE SET level=EXCLUDED.level
RETURNING id, created_at`
	err = r.db.Pool.QueryRow(ctx, q, grant.ID, grant.NodeID, grant.GroupID, grant.Level).
		Scan(&grant.ID, &grant.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.ErrNotFound
		}
		return err
	}
	return nil
}

// Revoke removes the grant; revoking an absent grant is a no-op.
func (r *PermissionRepo) Revoke(ctx context.Context, nodeID uuid.UUID, groupID string) error {
	const q = `DELETE FROM document_node_group_permissions WHERE node_id=$1 AND group_id=$2`
	_, err := r.db.Pool.Exec(ctx, q, nodeID, groupID)
	return err
}

// List returns all grants for a node ordered by group ID.
func (r *PermissionRepo) List(ctx context.Context, nodeID uuid.UUID) ([]model.PermissionGrant, error) {
	const q = `
SELECT id, node_id, group_id, level, created_at
FROM document_node_group_permissions WHERE node_id=$1 ORDER BY group_id`
	rows, err := r.db.Pool.Query(ctx, q, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PermissionGrant
	for rows.Next() {
		var g model.PermissionGrant
		if err = rows.Scan(&g.ID, &g.NodeID, &g.GroupID, &g.Level, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
