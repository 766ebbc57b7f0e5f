package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
	"github.com/mpue/cflux-sub004/internal/repository"
)

type fakeNodeRepo struct {
	byID map[uuid.UUID]*model.Node

	createIn  *model.Node
	createErr error

	renameOut *model.Node
	renameErr error

	updateInContent string
	updateNode      *model.Node
	updateVer       *model.Version
	updateErr       error

	moveOut *model.Node
	moveErr error

	delOut int64
	delErr error

	live    []model.Node
	liveErr error

	subtreeNodes    []model.Node
	subtreeVersions []model.Version
	subtreeErr      error
}

var _ repository.NodeRepository = (*fakeNodeRepo)(nil)

func (f *fakeNodeRepo) Create(_ context.Context, n *model.Node) error {
	f.createIn = n
	return f.createErr
}

func (f *fakeNodeRepo) Get(_ context.Context, id uuid.UUID) (*model.Node, error) {
	if n, ok := f.byID[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeNodeRepo) Rename(_ context.Context, id uuid.UUID, title, actor string) (*model.Node, error) {
	return f.renameOut, f.renameErr
}

func (f *fakeNodeRepo) UpdateContent(_ context.Context, id uuid.UUID, content, actor string) (*model.Node, *model.Version, error) {
	f.updateInContent = content
	return f.updateNode, f.updateVer, f.updateErr
}

func (f *fakeNodeRepo) Move(_ context.Context, id uuid.UUID, newParent *uuid.UUID, newOrder *int, actor string) (*model.Node, error) {
	return f.moveOut, f.moveErr
}

func (f *fakeNodeRepo) SoftDelete(_ context.Context, id uuid.UUID, actor string) (int64, error) {
	return f.delOut, f.delErr
}

func (f *fakeNodeRepo) ListLive(_ context.Context) ([]model.Node, error) {
	return append([]model.Node(nil), f.live...), f.liveErr
}

func (f *fakeNodeRepo) CreateSubtree(_ context.Context, nodes []model.Node, versions []model.Version) error {
	f.subtreeNodes = append([]model.Node(nil), nodes...)
	f.subtreeVersions = append([]model.Version(nil), versions...)
	return f.subtreeErr
}

func isValidationErr(err error) bool {
	return err != nil && len(err.Error()) >= 11 && err.Error()[:11] == "validation:"
}

func TestTreeService_Create_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewTreeService(&fakeNodeRepo{})

	if _, err := s.Create(ctx, CreateNode{Kind: model.KindFolder, Actor: "a"}); !isValidationErr(err) {
		t.Fatalf("empty title: %v", err)
	}
	if _, err := s.Create(ctx, CreateNode{Title: "x", Kind: "NOTE", Actor: "a"}); !isValidationErr(err) {
		t.Fatalf("bad kind: %v", err)
	}
	if _, err := s.Create(ctx, CreateNode{Title: "x", Kind: model.KindFolder}); !isValidationErr(err) {
		t.Fatalf("empty actor: %v", err)
	}
	_, err := s.Create(ctx, CreateNode{Title: "x", Kind: model.KindFolder, Content: "body", Actor: "a"})
	if !errors.Is(err, errs.ErrInvalidKind) {
		t.Fatalf("folder with content: want ErrInvalidKind, got %v", err)
	}
	neg := -5
	if _, err := s.Create(ctx, CreateNode{Title: "x", Kind: model.KindFolder, Order: &neg, Actor: "a"}); !isValidationErr(err) {
		t.Fatalf("negative order: %v", err)
	}
	if _, err := s.Move(ctx, uuid.Must(uuid.NewV4()), MoveNode{Order: &neg, Actor: "a"}); !isValidationErr(err) {
		t.Fatalf("negative move order: %v", err)
	}
}

func TestTreeService_Create_OrderDefaultsToNextSlot(t *testing.T) {
	t.Parallel()
	repo := &fakeNodeRepo{}
	s := NewTreeService(repo)

	_, err := s.Create(context.Background(), CreateNode{Title: "x", Kind: model.KindFolder, Actor: "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.createIn.SortOrder != -1 {
		t.Fatalf("nil order should request next slot, got %d", repo.createIn.SortOrder)
	}

	order := 3
	_, err = s.Create(context.Background(), CreateNode{Title: "x", Kind: model.KindFolder, Order: &order, Actor: "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.createIn.SortOrder != 3 {
		t.Fatalf("explicit order: got %d", repo.createIn.SortOrder)
	}
}

func TestTreeService_GetContent_Folder_InvalidKind(t *testing.T) {
	t.Parallel()
	id := uuid.Must(uuid.NewV4())
	repo := &fakeNodeRepo{byID: map[uuid.UUID]*model.Node{
		id: {ID: id, Title: "F", Kind: model.KindFolder},
	}}
	s := NewTreeService(repo)

	_, err := s.GetContent(context.Background(), id)
	if !errors.Is(err, errs.ErrInvalidKind) {
		t.Fatalf("want ErrInvalidKind, got %v", err)
	}
}

func TestTreeService_Breadcrumb_RootFirst(t *testing.T) {
	t.Parallel()
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	c := uuid.Must(uuid.NewV4())
	repo := &fakeNodeRepo{byID: map[uuid.UUID]*model.Node{
		a: {ID: a, Title: "A", Kind: model.KindFolder},
		b: {ID: b, Title: "B", Kind: model.KindFolder, ParentID: &a},
		c: {ID: c, Title: "C", Kind: model.KindDocument, ParentID: &b},
	}}
	s := NewTreeService(repo)

	path, err := s.Breadcrumb(context.Background(), c)
	if err != nil {
		t.Fatalf("Breadcrumb: %v", err)
	}
	if len(path) != 3 || path[0].ID != a || path[1].ID != b || path[2].ID != c {
		t.Fatalf("path = %+v, want A,B,C", path)
	}
}

func TestTreeService_Breadcrumb_CorruptCycle(t *testing.T) {
	t.Parallel()
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	repo := &fakeNodeRepo{byID: map[uuid.UUID]*model.Node{
		a: {ID: a, Title: "A", Kind: model.KindFolder, ParentID: &b},
		b: {ID: b, Title: "B", Kind: model.KindFolder, ParentID: &a},
	}}
	s := NewTreeService(repo)

	_, err := s.Breadcrumb(context.Background(), a)
	if !errors.Is(err, errs.ErrCycleDetected) {
		t.Fatalf("want ErrCycleDetected, got %v", err)
	}
}

func TestTreeService_Breadcrumb_VanishedParent_PartialPath(t *testing.T) {
	t.Parallel()
	gone := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	repo := &fakeNodeRepo{byID: map[uuid.UUID]*model.Node{
		b: {ID: b, Title: "B", Kind: model.KindDocument, ParentID: &gone},
	}}
	s := NewTreeService(repo)

	path, err := s.Breadcrumb(context.Background(), b)
	if err != nil {
		t.Fatalf("Breadcrumb: %v", err)
	}
	if len(path) != 1 || path[0].ID != b {
		t.Fatalf("path = %+v, want just B", path)
	}
}

func TestTreeService_Tree_Nesting(t *testing.T) {
	t.Parallel()
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	c := uuid.Must(uuid.NewV4())
	repo := &fakeNodeRepo{live: []model.Node{
		{ID: a, Title: "A", Kind: model.KindFolder},
		{ID: b, Title: "B", Kind: model.KindDocument, ParentID: &a},
		{ID: c, Title: "C", Kind: model.KindFolder},
	}}
	s := NewTreeService(repo)

	roots, err := s.Tree(context.Background(), nil)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	if roots[0].ID != a || len(roots[0].Children) != 1 || roots[0].Children[0].ID != b {
		t.Fatalf("A subtree wrong: %+v", roots[0])
	}
	if roots[1].ID != c || len(roots[1].Children) != 0 {
		t.Fatalf("C subtree wrong: %+v", roots[1])
	}
}

func TestTreeService_Tree_SubtreeByRoot(t *testing.T) {
	t.Parallel()
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	repo := &fakeNodeRepo{live: []model.Node{
		{ID: a, Title: "A", Kind: model.KindFolder},
		{ID: b, Title: "B", Kind: model.KindDocument, ParentID: &a},
	}}
	s := NewTreeService(repo)

	out, err := s.Tree(context.Background(), &b)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(out) != 1 || out[0].ID != b {
		t.Fatalf("subtree = %+v, want just B", out)
	}

	missing := uuid.Must(uuid.NewV4())
	if _, err := s.Tree(context.Background(), &missing); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing root: want ErrNotFound, got %v", err)
	}
}

func TestTreeService_Delete_Validation(t *testing.T) {
	t.Parallel()
	s := NewTreeService(&fakeNodeRepo{})

	if _, err := s.Delete(context.Background(), uuid.Nil, "a"); !isValidationErr(err) {
		t.Fatalf("empty id: %v", err)
	}
	if _, err := s.Delete(context.Background(), uuid.Must(uuid.NewV4()), ""); !isValidationErr(err) {
		t.Fatalf("empty actor: %v", err)
	}
}

func TestTreeService_Delete_ReturnsCount(t *testing.T) {
	t.Parallel()
	repo := &fakeNodeRepo{delOut: 4}
	s := NewTreeService(repo)

	n, err := s.Delete(context.Background(), uuid.Must(uuid.NewV4()), "a")
	if err != nil || n != 4 {
		t.Fatalf("n=%d err=%v, want 4", n, err)
	}
}
