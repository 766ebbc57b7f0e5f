package repository

import (
	"context"

	"github.com/mpue/cflux-sub004/internal/model"
)

// SnapshotRepository supports whole-forest backup and restore.
type SnapshotRepository interface {
	// DumpAll reads every node (including soft-deleted ones), version and grant
	// in one consistent transaction.
	DumpAll(ctx context.Context) ([]model.Node, []model.Version, []model.PermissionGrant, error)

	// CountNodes counts all node rows, soft-deleted included.
	CountNodes(ctx context.Context) (int64, error)

	// InsertAll writes snapshot rows verbatim (original IDs and timestamps) in
	// one transaction. Nodes must arrive parents-before-children; versions and
	// grants follow after all nodes exist.
	InsertAll(ctx context.Context, nodes []model.Node, versions []model.Version, grants []model.PermissionGrant) error
}
