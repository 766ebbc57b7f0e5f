package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
)

const versionCols = `id, node_id, content, version, created_by, created_at`

// VersionRepo implements VersionRepository using PostgreSQL.
type VersionRepo struct{ db *DB }

// NewVersionRepo constructs a version repository.
func NewVersionRepo(db *DB) *VersionRepo { return &VersionRepo{db: db} }

// List returns all versions of a node, newest first.
func (r *VersionRepo) List(ctx context.Context, nodeID uuid.UUID) ([]model.Version, error) {
	q := `SELECT ` + versionCols + ` FROM document_versions WHERE node_id=$1 ORDER BY version DESC`
	rows, err := r.db.Pool.Query(ctx, q, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Version
	for rows.Next() {
		var v model.Version
		if err = rows.Scan(&v.ID, &v.NodeID, &v.Content, &v.Number, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get returns a version scoped to its owning node; a version ID that exists
// under a different node is reported as missing.
func (r *VersionRepo) Get(ctx context.Context, nodeID, versionID uuid.UUID) (*model.Version, error) {
	q := `SELECT ` + versionCols + ` FROM document_versions WHERE id=$1 AND node_id=$2`
	var v model.Version
	err := r.db.Pool.QueryRow(ctx, q, versionID, nodeID).
		Scan(&v.ID, &v.NodeID, &v.Content, &v.Number, &v.CreatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
