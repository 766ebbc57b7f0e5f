// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/model"
)

// NodeRepository provides transactional access to the document tree.
// All mutating methods run inside a single database transaction; the
// node-level invariants (live folder parents, per-node version numbering,
// acyclic moves) are enforced under row locks there.
type NodeRepository interface {
	// Create inserts a node. A negative SortOrder requests the next slot after
	// the current maximum among live siblings. For a document with non-empty
	// Content the initial version row is written in the same transaction.
	Create(ctx context.Context, node *model.Node) error

	// Get loads a live node by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Node, error)

	// Rename updates the title, a pure metadata change with no version impact.
	Rename(ctx context.Context, id uuid.UUID, title, actor string) (*model.Node, error)

	// UpdateContent replaces a document's content and appends the next version
	// atomically. Folders are rejected.
	UpdateContent(ctx context.Context, id uuid.UUID, content, actor string) (*model.Node, *model.Version, error)

	// Move reparents a node after checking the destination is a live folder and
	// not inside the moved subtree. A nil newOrder requests the next sibling slot.
	Move(ctx context.Context, id uuid.UUID, newParent *uuid.UUID, newOrder *int, actor string) (*model.Node, error)

	// SoftDelete marks the node and all its live descendants deleted and
	// returns the number of affected nodes.
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) (int64, error)

	// ListLive returns every live node ordered by (sort hint, creation time).
	ListLive(ctx context.Context) ([]model.Node, error)

	// CreateSubtree inserts a pre-built set of nodes (parents before children)
	// and their initial versions in one transaction. The subtree root's parent,
	// when set, must resolve to a live folder.
	CreateSubtree(ctx context.Context, nodes []model.Node, versions []model.Version) error
}
