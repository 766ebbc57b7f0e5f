package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/model"
	"github.com/mpue/cflux-sub004/internal/repository"
)

// PermissionService stores flat group grants per node. Effective-permission
// evaluation (walking ancestors, unioning grants) belongs to the external
// authorization collaborator, not here.
type PermissionService interface {
	// Grant creates or replaces the grant for (node, group).
	Grant(ctx context.Context, nodeID uuid.UUID, groupID string, level model.PermissionLevel) (*model.PermissionGrant, error)
	// Revoke removes the grant; absent grants are ignored.
	Revoke(ctx context.Context, nodeID uuid.UUID, groupID string) error
	// List returns the node's grants.
	List(ctx context.Context, nodeID uuid.UUID) ([]model.PermissionGrant, error)
}

type PermissionServiceImpl struct {
	perms repository.PermissionRepository
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(perms repository.PermissionRepository) *PermissionServiceImpl {
	return &PermissionServiceImpl{perms: perms}
}

// Grant upserts the single grant row for the pair.
func (s *PermissionServiceImpl) Grant(ctx context.Context, nodeID uuid.UUID, groupID string, level model.PermissionLevel) (*model.PermissionGrant, error) {
	if nodeID == uuid.Nil || groupID == "" {
		return nil, errors.New("validation: empty node/group id")
	}
	if !level.Valid() {
		return nil, fmt.Errorf("validation: unknown level %q", level)
	}
	g := &model.PermissionGrant{NodeID: nodeID, GroupID: groupID, Level: level}
	if err := s.perms.Grant(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Revoke drops the grant if present.
func (s *PermissionServiceImpl) Revoke(ctx context.Context, nodeID uuid.UUID, groupID string) error {
	if nodeID == uuid.Nil || groupID == "" {
		return errors.New("validation: empty node/group id")
	}
	return s.perms.Revoke(ctx, nodeID, groupID)
}

// List returns all grants for the node.
func (s *PermissionServiceImpl) List(ctx context.Context, nodeID uuid.UUID) ([]model.PermissionGrant, error) {
	if nodeID == uuid.Nil {
		return nil, errors.New("validation: empty node id")
	}
	return s.perms.List(ctx, nodeID)
}
