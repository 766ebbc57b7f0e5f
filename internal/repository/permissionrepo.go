package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/model"
)

// PermissionRepository stores flat group-to-node access grants.
// No inheritance is computed here; effective permission evaluation is the
// authorization collaborator's job.
type PermissionRepository interface {
	// Grant creates or overwrites the single grant for (node, group).
	// The node must exist; soft-deleted nodes keep their grants.
	Grant(ctx context.Context, grant *model.PermissionGrant) error

	// Revoke removes the grant if present. Absence is not an error.
	Revoke(ctx context.Context, nodeID uuid.UUID, groupID string) error

	// List returns all grants for a node ordered by group ID.
	List(ctx context.Context, nodeID uuid.UUID) ([]model.PermissionGrant, error)
}
