package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mpue/cflux-sub004/internal/model"
)

// SnapshotRepo implements SnapshotRepository using PostgreSQL.
type SnapshotRepo struct{ db *DB }

// NewSnapshotRepo constructs a snapshot repository.
func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// DumpAll reads all nodes (soft-deleted included), versions and grants under a
// repeatable-read transaction so the snapshot is internally consistent.
func (r *SnapshotRepo) DumpAll(ctx context.Context) (nodes []model.Node, versions []model.Version, grants []model.PermissionGrant, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, nil, nil, err
	}
	defer finishTx(ctx, tx, &err)

	if nodes, err = dumpNodes(ctx, tx); err != nil {
		return nil, nil, nil, err
	}
	if versions, err = dumpVersions(ctx, tx); err != nil {
		return nil, nil, nil, err
	}
	if grants, err = dumpGrants(ctx, tx); err != nil {
		return nil, nil, nil, err
	}
	return nodes, versions, grants, nil
}

func dumpNodes(ctx context.Context, tx pgx.Tx) ([]model.Node, error) {
	q := `SELECT ` + nodeCols + ` FROM document_nodes ORDER BY created_at`
	rows, err := tx.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Node
	for rows.Next() {
		var n model.Node
		if err = rows.Scan(&n.ID, &n.Title, &n.Kind, &n.Content, &n.ParentID, &n.SortOrder,
			&n.CreatedBy, &n.UpdatedBy, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func dumpVersions(ctx context.Context, tx pgx.Tx) ([]model.Version, error) {
	q := `SELECT ` + versionCols + ` FROM document_versions ORDER BY node_id, version`
	rows, err := tx.Query(ctx, q)
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

func dumpGrants(ctx context.Context, tx pgx.Tx) ([]model.PermissionGrant, error) {
	const q = `SELECT id, node_id, group_id, level, created_at FROM document_node_group_permissions ORDER BY node_id, group_id`
	rows, err := tx.Query(ctx, q)
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

// CountNodes counts every node row, soft-deleted included.
func (r *SnapshotRepo) CountNodes(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM document_nodes`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertAll replays snapshot rows in one transaction, preserving original IDs
// and timestamps. Nodes must already be ordered parents-before-children or the
// self-referencing foreign key fails.
func (r *SnapshotRepo) InsertAll(ctx context.Context, nodes []model.Node, versions []model.Version, grants []model.PermissionGrant) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const insNode = `
INSERT INTO document_nodes (id, title, kind, content, parent_id, sort_order, created_by, updated_by, created_at, updated_at, deleted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	for i := range nodes {
		n := &nodes[i]
		if _, err = tx.Exec(ctx, insNode, n.ID, n.Title, n.Kind, n.Content, n.ParentID,
			n.SortOrder, n.CreatedBy, n.UpdatedBy, n.CreatedAt, n.UpdatedAt, n.DeletedAt); err != nil {
			return err
		}
	}

	const insVer = `
INSERT INTO document_versions (id, node_id, content, version, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	for i := range versions {
		v := &versions[i]
		if _, err = tx.Exec(ctx, insVer, v.ID, v.NodeID, v.Content, v.Number, v.CreatedBy, v.CreatedAt); err != nil {
			return err
		}
	}

	const insGrant = `
INSERT INTO document_node_group_permissions (id, node_id, group_id, level, created_at)
VALUES ($1,$2,$3,$4,$5)`
	for i := range grants {
		g := &grants[i]
		if _, err = tx.Exec(ctx, insGrant, g.ID, g.NodeID, g.GroupID, g.Level, g.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
