package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/model"
)

// VersionRepository provides read access to the append-only version log.
// Appending happens through NodeRepository so the node row lock serializes
// version numbering per document.
type VersionRepository interface {
	// List returns all versions of a node, newest first.
	List(ctx context.Context, nodeID uuid.UUID) ([]model.Version, error)

	// Get returns a version only if it belongs to the given node.
	Get(ctx context.Context, nodeID, versionID uuid.UUID) (*model.Version, error)
}
