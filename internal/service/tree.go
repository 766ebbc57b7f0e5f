// Package service implements the document-store use cases on top of the
// repository interfaces: tree mutation, version history, permission grants,
// archive import and snapshot backup/restore.
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

// maxBreadcrumbDepth bounds the ancestor walk. Moves guard against cycles, so
// hitting the bound means the stored data is corrupted.
const maxBreadcrumbDepth = 128

// CreateNode describes a node creation request. A nil Order requests the next
// slot after the current live siblings.
type CreateNode struct {
	Kind     model.NodeKind
	Title    string
	ParentID *uuid.UUID
	Content  string
	Order    *int
	Actor    string
}

// MoveNode describes a reparent request. A nil Order requests the next slot
// among the destination's live siblings.
type MoveNode struct {
	NewParentID *uuid.UUID
	Order       *int
	Actor       string
}

// TreeService exposes the document tree operations.
type TreeService interface {
	// Create adds a folder or document; a document with non-empty content gets
	// version 1 atomically with the node.
	Create(ctx context.Context, req CreateNode) (*model.Node, error)
	// Get returns a live node.
	Get(ctx context.Context, id uuid.UUID) (*model.Node, error)
	// GetContent returns the current content of a document.
	GetContent(ctx context.Context, id uuid.UUID) (string, error)
	// Rename updates the title without touching version history.
	Rename(ctx context.Context, id uuid.UUID, title, actor string) (*model.Node, error)
	// UpdateContent replaces document content, appending the next version.
	UpdateContent(ctx context.Context, id uuid.UUID, content, actor string) (*model.Node, error)
	// Move reparents a node, refusing moves into the node's own subtree.
	Move(ctx context.Context, id uuid.UUID, req MoveNode) (*model.Node, error)
	// Delete soft-deletes the node and all live descendants, returning the count.
	Delete(ctx context.Context, id uuid.UUID, actor string) (int64, error)
	// Breadcrumb returns the path from the root down to the node itself.
	Breadcrumb(ctx context.Context, id uuid.UUID) ([]model.Node, error)
	// Tree returns the nested live forest, or the subtree under rootID.
	Tree(ctx context.Context, rootID *uuid.UUID) ([]*model.TreeNode, error)
}

type TreeServiceImpl struct {
	nodes repository.NodeRepository
}

// NewTreeService constructs a TreeService.
func NewTreeService(nodes repository.NodeRepository) *TreeServiceImpl {
	return &TreeServiceImpl{nodes: nodes}
}

// Create validates the request and delegates the transactional insert.
func (s *TreeServiceImpl) Create(ctx context.Context, req CreateNode) (*model.Node, error) {
	if req.Title == "" {
		return nil, errors.New("validation: empty title")
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("validation: unknown kind %q", req.Kind)
	}
	if req.Actor == "" {
		return nil, errors.New("validation: empty actor")
	}
	if req.Kind == model.KindFolder && req.Content != "" {
		return nil, fmt.Errorf("folder cannot carry content: %w", errs.ErrInvalidKind)
	}
	if req.Order != nil && *req.Order < 0 {
		return nil, fmt.Errorf("validation: negative order %d", *req.Order)
	}

	node := &model.Node{
		Title:     req.Title,
		Kind:      req.Kind,
		Content:   req.Content,
		ParentID:  req.ParentID,
		SortOrder: -1,
		CreatedBy: req.Actor,
		UpdatedBy: req.Actor,
	}
	if req.Order != nil {
		node.SortOrder = *req.Order
	}
	if err := s.nodes.Create(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// Get returns a live node by ID.
func (s *TreeServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Node, error) {
	if id == uuid.Nil {
		return nil, errors.New("validation: empty id")
	}
	return s.nodes.Get(ctx, id)
}

// GetContent returns the current content of a document node.
func (s *TreeServiceImpl) GetContent(ctx context.Context, id uuid.UUID) (string, error) {
	node, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if node.Kind != model.KindDocument {
		return "", errs.ErrInvalidKind
	}
	return node.Content, nil
}

// Rename updates the title of a live node.
func (s *TreeServiceImpl) Rename(ctx context.Context, id uuid.UUID, title, actor string) (*model.Node, error) {
	if id == uuid.Nil || title == "" || actor == "" {
		return nil, errors.New("validation: empty id/title/actor")
	}
	return s.nodes.Rename(ctx, id, title, actor)
}

// UpdateContent replaces document content; the new version is appended in the
// same transaction by the repository.
func (s *TreeServiceImpl) UpdateContent(ctx context.Context, id uuid.UUID, content, actor string) (*model.Node, error) {
	if id == uuid.Nil || actor == "" {
		return nil, errors.New("validation: empty id/actor")
	}
	node, _, err := s.nodes.UpdateContent(ctx, id, content, actor)
	return node, err
}

// Move reparents a node.
func (s *TreeServiceImpl) Move(ctx context.Context, id uuid.UUID, req MoveNode) (*model.Node, error) {
	if id == uuid.Nil || req.Actor == "" {
		return nil, errors.New("validation: empty id/actor")
	}
	if req.Order != nil && *req.Order < 0 {
		return nil, fmt.Errorf("validation: negative order %d", *req.Order)
	}
	return s.nodes.Move(ctx, id, req.NewParentID, req.Order, req.Actor)
}

// Delete soft-deletes the subtree rooted at id.
func (s *TreeServiceImpl) Delete(ctx context.Context, id uuid.UUID, actor string) (int64, error) {
	if id == uuid.Nil || actor == "" {
		return 0, errors.New("validation: empty id/actor")
	}
	return s.nodes.SoftDelete(ctx, id, actor)
}

// Breadcrumb walks parent pointers up to the root and returns the path root
// first, ending with the node itself. The walk is bounded and keeps a seen set
// so corrupted data surfaces as ErrCycleDetected instead of looping.
func (s *TreeServiceImpl) Breadcrumb(ctx context.Context, id uuid.UUID) ([]model.Node, error) {
	if id == uuid.Nil {
		return nil, errors.New("validation: empty id")
	}

	var path []model.Node
	seen := map[uuid.UUID]struct{}{}
	cur := &id
	for depth := 0; cur != nil; depth++ {
		if depth >= maxBreadcrumbDepth {
			return nil, fmt.Errorf("breadcrumb deeper than %d: %w", maxBreadcrumbDepth, errs.ErrCycleDetected)
		}
		if _, ok := seen[*cur]; ok {
			return nil, fmt.Errorf("node %s revisited: %w", *cur, errs.ErrCycleDetected)
		}
		seen[*cur] = struct{}{}

		node, err := s.nodes.Get(ctx, *cur)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) && len(path) > 0 {
				break // parent vanished mid-walk; return what resolved
			}
			return nil, err
		}
		path = append(path, *node)
		cur = node.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Tree nests the live nodes by parent. With a rootID only that subtree is
// returned; otherwise every root and its descendants.
func (s *TreeServiceImpl) Tree(ctx context.Context, rootID *uuid.UUID) ([]*model.TreeNode, error) {
	nodes, err := s.nodes.ListLive(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*model.TreeNode, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &model.TreeNode{Node: nodes[i]}
	}

	var roots []*model.TreeNode
	for i := range nodes { // input is already ordered (sort_order, created_at)
		tn := byID[nodes[i].ID]
		if p := nodes[i].ParentID; p != nil {
			if parent, ok := byID[*p]; ok {
				parent.Children = append(parent.Children, tn)
				continue
			}
		}
		roots = append(roots, tn)
	}

	if rootID == nil {
		return roots, nil
	}
	root, ok := byID[*rootID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return []*model.TreeNode{root}, nil
}
