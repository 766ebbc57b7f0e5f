package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
	"github.com/mpue/cflux-sub004/internal/repository"
)

// VersionService exposes the append-only version history of documents.
type VersionService interface {
	// List returns a document's versions, newest first.
	List(ctx context.Context, nodeID uuid.UUID) ([]model.Version, error)
	// Get returns one version, scoped to its owning document.
	Get(ctx context.Context, nodeID, versionID uuid.UUID) (*model.Version, error)
	// Restore re-applies an old version's content as a brand-new head version.
	// Nothing is deleted; the history stays a strict append log.
	Restore(ctx context.Context, nodeID, versionID uuid.UUID, actor string) (*model.Node, *model.Version, error)
}

type VersionServiceImpl struct {
	nodes    repository.NodeRepository
	versions repository.VersionRepository
}

// NewVersionService constructs a VersionService.
func NewVersionService(nodes repository.NodeRepository, versions repository.VersionRepository) *VersionServiceImpl {
	return &VersionServiceImpl{nodes: nodes, versions: versions}
}

// requireDocument loads a live node and checks it is a document.
func (s *VersionServiceImpl) requireDocument(ctx context.Context, nodeID uuid.UUID) error {
	node, err := s.nodes.Get(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.Kind != model.KindDocument {
		return fmt.Errorf("node %s is a folder: %w", nodeID, errs.ErrInvalidKind)
	}
	return nil
}

// List returns all versions of a document, newest first.
func (s *VersionServiceImpl) List(ctx context.Context, nodeID uuid.UUID) ([]model.Version, error) {
	if nodeID == uuid.Nil {
		return nil, errors.New("validation: empty node id")
	}
	if err := s.requireDocument(ctx, nodeID); err != nil {
		return nil, err
	}
	return s.versions.List(ctx, nodeID)
}

// Get returns a single version belonging to the document.
func (s *VersionServiceImpl) Get(ctx context.Context, nodeID, versionID uuid.UUID) (*model.Version, error) {
	if nodeID == uuid.Nil || versionID == uuid.Nil {
		return nil, errors.New("validation: empty node/version id")
	}
	return s.versions.Get(ctx, nodeID, versionID)
}

// Restore reads the target version and performs the equivalent of an
// UpdateContent with its content, producing the next version number.
func (s *VersionServiceImpl) Restore(ctx context.Context, nodeID, versionID uuid.UUID, actor string) (*model.Node, *model.Version, error) {
	if nodeID == uuid.Nil || versionID == uuid.Nil || actor == "" {
		return nil, nil, errors.New("validation: empty node/version id or actor")
	}
	old, err := s.versions.Get(ctx, nodeID, versionID)
	if err != nil {
		return nil, nil, err
	}
	return s.nodes.UpdateContent(ctx, nodeID, old.Content, actor)
}
