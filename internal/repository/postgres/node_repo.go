package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
)

// maxAncestorDepth bounds parent-chain walks so corrupted data cannot loop forever.
const maxAncestorDepth = 128

const nodeCols = `id, title, kind, content, parent_id, sort_order, created_by, updated_by, created_at, updated_at, deleted_at`

// NodeRepo implements NodeRepository using PostgreSQL.
type NodeRepo struct{ db *DB }

// NewNodeRepo constructs a node repository.
func NewNodeRepo(db *DB) *NodeRepo { return &NodeRepo{db: db} }

func scanNode(row pgx.Row) (*model.Node, error) {
	var n model.Node
	err := row.Scan(&n.ID, &n.Title, &n.Kind, &n.Content, &n.ParentID, &n.SortOrder,
		&n.CreatedBy, &n.UpdatedBy, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// requireLiveFolder locks the prospective parent row and verifies it is a live folder.
func requireLiveFolder(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	const q = `SELECT kind FROM document_nodes WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`
	var kind model.NodeKind
	if err := tx.QueryRow(ctx, q, id).Scan(&kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrInvalidParent
		}
		return err
	}
	if kind != model.KindFolder {
		return errs.ErrInvalidParent
	}
	return nil
}

// nextSiblingOrder returns max(sort_order)+1 among live siblings (0 if none).
// exclude skips the node being moved so it does not shadow itself.
func nextSiblingOrder(ctx context.Context, tx pgx.Tx, parent *uuid.UUID, exclude uuid.UUID) (int, error) {
	const q = `
SELECT COALESCE(MAX(sort_order)+1, 0) FROM document_nodes
WHERE parent_id IS NOT DISTINCT FROM $1 AND deleted_at IS NULL AND id <> $2`
	var next int
	if err := tx.QueryRow(ctx, q, parent, exclude).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// insertNextVersion appends the next version for a node. The caller must hold
// the node row lock; the unique (node_id, version) index backstops any race.
func insertNextVersion(ctx context.Context, tx pgx.Tx, nodeID uuid.UUID, content, actor string) (*model.Version, error) {
	const selMax = `SELECT COALESCE(MAX(version), 0) FROM document_versions WHERE node_id=$1`
	var cur int64
	if err := tx.QueryRow(ctx, selMax, nodeID).Scan(&cur); err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	v := &model.Version{ID: id, NodeID: nodeID, Content: content, Number: cur + 1, CreatedBy: actor}

	const ins = `
INSERT INTO document_versions (id, node_id, content, version, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,now()) RETURNING created_at`
	if err := tx.QueryRow(ctx, ins, v.ID, v.NodeID, v.Content, v.Number, v.CreatedBy).Scan(&v.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrConflict
		}
		return nil, err
	}
	return v, nil
}

// Create inserts a node, assigning the next sibling order when SortOrder is
// negative, and writes version 1 for a document with non-empty content.
func (r *NodeRepo) Create(ctx context.Context, node *model.Node) (err error) {
	if node.ID == uuid.Nil {
		if node.ID, err = uuid.NewV4(); err != nil {
			return err
		}
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	if node.ParentID != nil {
		if err = requireLiveFolder(ctx, tx, *node.ParentID); err != nil {
			return err
		}
	}
	if node.SortOrder < 0 {
		if node.SortOrder, err = nextSiblingOrder(ctx, tx, node.ParentID, node.ID); err != nil {
			return err
		}
	}

	const ins = `
INSERT INTO document_nodes (id, title, kind, content, parent_id, sort_order, created_by, updated_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now()) RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, ins, node.ID, node.Title, node.Kind, node.Content,
		node.ParentID, node.SortOrder, node.CreatedBy, node.UpdatedBy).
		Scan(&node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return err
	}

	if node.Kind == model.KindDocument && node.Content != "" {
		if _, err = insertNextVersion(ctx, tx, node.ID, node.Content, node.CreatedBy); err != nil {
			return err
		}
	}
	return nil
}

// Get loads a live node by ID.
func (r *NodeRepo) Get(ctx context.Context, id uuid.UUID) (*model.Node, error) {
	q := `SELECT ` + nodeCols + ` FROM document_nodes WHERE id=$1 AND deleted_at IS NULL`
	return scanNode(r.db.Pool.QueryRow(ctx, q, id))
}

// Rename updates the title of a live node.
func (r *NodeRepo) Rename(ctx context.Context, id uuid.UUID, title, actor string) (*model.Node, error) {
	q := `
UPDATE document_nodes SET title=$2, updated_by=$3, updated_at=now()
WHERE id=$1 AND deleted_at IS NULL RETURNING ` + nodeCols
	return scanNode(r.db.Pool.QueryRow(ctx, q, id, title, actor))
}

// UpdateContent replaces document content and appends the next version in one transaction.
func (r *NodeRepo) UpdateContent(ctx context.Context, id uuid.UUID, content, actor string) (node *model.Node, ver *model.Version, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer finishTx(ctx, tx, &err)

	const lock = `SELECT kind FROM document_nodes WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`
	var kind model.NodeKind
	if err = tx.QueryRow(ctx, lock, id).Scan(&kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errs.ErrNotFound
		}
		return nil, nil, err
	}
	if kind != model.KindDocument {
		return nil, nil, errs.ErrInvalidKind
	}

	if ver, err = insertNextVersion(ctx, tx, id, content, actor); err != nil {
		return nil, nil, err
	}

	upd := `
UPDATE document_nodes SET content=$2, updated_by=$3, updated_at=now()
WHERE id=$1 RETURNING ` + nodeCols
	if node, err = scanNode(tx.QueryRow(ctx, upd, id, content, actor)); err != nil {
		return nil, nil, err
	}
	return node, ver, nil
}

// Move reparents a node. The cycle check and the parent update run under the
// same transaction so concurrent moves cannot install a cycle.
func (r *NodeRepo) Move(ctx context.Context, id uuid.UUID, newParent *uuid.UUID, newOrder *int, actor string) (node *model.Node, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finishTx(ctx, tx, &err)

	lock := `SELECT ` + nodeCols + ` FROM document_nodes WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`
	if _, err = scanNode(tx.QueryRow(ctx, lock, id)); err != nil {
		return nil, err
	}

	if newParent != nil {
		if *newParent == id {
			return nil, errs.ErrCycleDetected
		}
		if err = requireLiveFolder(ctx, tx, *newParent); err != nil {
			return nil, err
		}
		if err = ensureNotDescendant(ctx, tx, id, *newParent); err != nil {
			return nil, err
		}
	}

	order := 0
	if newOrder != nil {
		order = *newOrder
	} else if order, err = nextSiblingOrder(ctx, tx, newParent, id); err != nil {
		return nil, err
	}

	upd := `
UPDATE document_nodes SET parent_id=$2, sort_order=$3, updated_by=$4, updated_at=now()
WHERE id=$1 RETURNING ` + nodeCols
	return scanNode(tx.QueryRow(ctx, upd, id, newParent, order, actor))
}

// ensureNotDescendant walks the ancestor chain of candidate and fails when it
// passes through moved. The walk is bounded by maxAncestorDepth. Every walked
// row is share-locked until commit so a concurrent move cannot rewrite the
// chain underneath us; two moves that would jointly form a cycle now conflict
// and one of them aborts.
func ensureNotDescendant(ctx context.Context, tx pgx.Tx, moved, candidate uuid.UUID) error {
	const q = `SELECT parent_id FROM document_nodes WHERE id=$1 FOR SHARE`
	cur := candidate
	for depth := 0; depth < maxAncestorDepth; depth++ {
		var parent *uuid.UUID
		if err := tx.QueryRow(ctx, q, cur).Scan(&parent); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		if parent == nil {
			return nil
		}
		if *parent == moved {
			return errs.ErrCycleDetected
		}
		cur = *parent
	}
	return fmt.Errorf("ancestor chain of %s deeper than %d: %w", candidate, maxAncestorDepth, errs.ErrCycleDetected)
}

// SoftDelete marks the node and all live descendants deleted in one statement.
func (r *NodeRepo) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (int64, error) {
	const q = `
WITH RECURSIVE subtree AS (
    SELECT id FROM document_nodes WHERE id=$1 AND deleted_at IS NULL
    UNION ALL
    SELECT c.id FROM document_nodes c JOIN subtree s ON c.parent_id = s.id
    WHERE c.deleted_at IS NULL
)
UPDATE document_nodes SET deleted_at=now(), updated_by=$2, updated_at=now()
WHERE id IN (SELECT id FROM subtree)`
	tag, err := r.db.Pool.Exec(ctx, q, id, actor)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, errs.ErrNotFound
	}
	return tag.RowsAffected(), nil
}

// ListLive returns all live nodes ordered by sort hint with creation time as tiebreak.
func (r *NodeRepo) ListLive(ctx context.Context) ([]model.Node, error) {
	q := `SELECT ` + nodeCols + ` FROM document_nodes WHERE deleted_at IS NULL ORDER BY sort_order, created_at`
	rows, err := r.db.Pool.Query(ctx, q)
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

// CreateSubtree inserts pre-built import nodes (parents first) and their
// initial versions atomically. Everything rolls back on the first failure.
func (r *NodeRepo) CreateSubtree(ctx context.Context, nodes []model.Node, versions []model.Version) (err error) {
	if len(nodes) == 0 {
		return nil
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	root := &nodes[0]
	if root.ParentID != nil {
		if err = requireLiveFolder(ctx, tx, *root.ParentID); err != nil {
			return err
		}
	}
	if root.SortOrder < 0 {
		if root.SortOrder, err = nextSiblingOrder(ctx, tx, root.ParentID, root.ID); err != nil {
			return err
		}
	}

	const insNode = `
INSERT INTO document_nodes (id, title, kind, content, parent_id, sort_order, created_by, updated_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())`
	for i := range nodes {
		n := &nodes[i]
		if _, err = tx.Exec(ctx, insNode, n.ID, n.Title, n.Kind, n.Content,
			n.ParentID, n.SortOrder, n.CreatedBy, n.UpdatedBy); err != nil {
			return err
		}
	}

	const insVer = `
INSERT INTO document_versions (id, node_id, content, version, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,now())`
	for i := range versions {
		v := &versions[i]
		if _, err = tx.Exec(ctx, insVer, v.ID, v.NodeID, v.Content, v.Number, v.CreatedBy); err != nil {
			return err
		}
	}
	return nil
}
