package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
	"github.com/mpue/cflux-sub004/internal/repository"
)

const markupExt = ".md"

// Renderer converts lightweight markup to the stored content format.
// It is treated as a pure function and may fail.
type Renderer interface {
	Render(src string) (string, error)
}

// ImportService rebuilds a folder/document subtree from a zip archive.
type ImportService interface {
	// Import creates one folder named after the archive under parentID (or as
	// a new root) and mirrors the archive's directory structure beneath it.
	// Markup files become documents with their rendered content as version 1;
	// other files are skipped. The whole import commits or rolls back as one.
	Import(ctx context.Context, archive []byte, archiveName string, parentID *uuid.UUID, actor string) (*model.Node, error)
}

type ImportServiceImpl struct {
	nodes  repository.NodeRepository
	render Renderer
	log    *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(nodes repository.NodeRepository, render Renderer, log *zap.Logger) *ImportServiceImpl {
	return &ImportServiceImpl{nodes: nodes, render: render, log: log}
}

// dirEntry is one level of the archive's virtual directory tree.
type dirEntry struct {
	subdirs map[string]*dirEntry
	files   map[string]*zip.File // markup files directly in this directory
}

func newDirEntry() *dirEntry {
	return &dirEntry{subdirs: map[string]*dirEntry{}, files: map[string]*zip.File{}}
}

// child returns (creating on demand) the named subdirectory.
func (d *dirEntry) child(name string) *dirEntry {
	c, ok := d.subdirs[name]
	if !ok {
		c = newDirEntry()
		d.subdirs[name] = c
	}
	return c
}

// Import walks the archive with an explicit stack (the input is untrusted, so
// no unbounded recursion), builds the subtree in memory and inserts it in one
// transaction.
func (s *ImportServiceImpl) Import(ctx context.Context, archive []byte, archiveName string, parentID *uuid.UUID, actor string) (*model.Node, error) {
	if actor == "" {
		return nil, errors.New("validation: empty actor")
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArchive, err)
	}

	root, err := s.indexArchive(zr)
	if err != nil {
		return nil, err
	}

	rootTitle := capitalizeFirst(strings.TrimSuffix(archiveName, path.Ext(archiveName)))
	if rootTitle == "" {
		rootTitle = "Import"
	}

	rootID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	nodes := []model.Node{{
		ID:        rootID,
		Title:     rootTitle,
		Kind:      model.KindFolder,
		ParentID:  parentID,
		SortOrder: -1, // next slot among the target's live children
		CreatedBy: actor,
		UpdatedBy: actor,
	}}

	var versions []model.Version
	type frame struct {
		dir    *dirEntry
		parent uuid.UUID
	}
	stack := []frame{{dir: root, parent: rootID}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		order := 0
		for _, name := range sortedKeys(f.dir.files) {
			content, err := s.renderFile(f.dir.files[name])
			if err != nil {
				return nil, err
			}
			docID, err := uuid.NewV4()
			if err != nil {
				return nil, err
			}
			pid := f.parent
			nodes = append(nodes, model.Node{
				ID:        docID,
				Title:     formatTitle(name),
				Kind:      model.KindDocument,
				Content:   content,
				ParentID:  &pid,
				SortOrder: order,
				CreatedBy: actor,
				UpdatedBy: actor,
			})
			verID, err := uuid.NewV4()
			if err != nil {
				return nil, err
			}
			versions = append(versions, model.Version{
				ID: verID, NodeID: docID, Content: content, Number: 1, CreatedBy: actor,
			})
			order++
		}

		for _, name := range sortedKeys(f.dir.subdirs) {
			folderID, err := uuid.NewV4()
			if err != nil {
				return nil, err
			}
			pid := f.parent
			nodes = append(nodes, model.Node{
				ID:        folderID,
				Title:     capitalizeFirst(name),
				Kind:      model.KindFolder,
				ParentID:  &pid,
				SortOrder: order,
				CreatedBy: actor,
				UpdatedBy: actor,
			})
			stack = append(stack, frame{dir: f.dir.subdirs[name], parent: folderID})
			order++
		}
	}

	if err := s.nodes.CreateSubtree(ctx, nodes, versions); err != nil {
		return nil, err
	}
	s.log.Info("archive imported",
		zap.String("root", rootID.String()),
		zap.Int("nodes", len(nodes)),
		zap.Int("documents", len(versions)),
	)
	created := nodes[0]
	return &created, nil
}

// indexArchive groups the archive entries into a virtual directory tree.
// Entries with absolute or parent-escaping paths are dropped with a warning.
// Markup files register in their directory; any other entry only materializes
// its parent directories.
func (s *ImportServiceImpl) indexArchive(zr *zip.Reader) (*dirEntry, error) {
	root := newDirEntry()
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		if name == "" {
			continue
		}
		clean := path.Clean(name)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			s.log.Warn("skipping unsafe archive entry", zap.String("entry", f.Name))
			continue
		}

		parts := strings.Split(clean, "/")
		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()

		dir := root
		last := len(parts) - 1
		for _, seg := range parts[:last] {
			dir = dir.child(seg)
		}
		switch {
		case isDir:
			// materializes the chain above; the empty leaf itself is skipped
		case strings.EqualFold(path.Ext(parts[last]), markupExt):
			dir.files[parts[last]] = f
		default:
			// non-markup file: parents exist, payload silently skipped
		}
	}
	return root, nil
}

// renderFile reads a markup entry and renders it to the stored content format.
func (s *ImportServiceImpl) renderFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", errs.ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	src, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", errs.ErrInvalidArchive, f.Name, err)
	}
	out, err := s.render.Render(string(src))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errs.ErrRenderFailed, f.Name, err)
	}
	return out, nil
}

// formatTitle derives a display title from a markup file name: the extension
// is stripped; underscore-separated names become title-cased words, anything
// else just gets its first character capitalized.
func formatTitle(filename string) string {
	name := filename
	if ext := path.Ext(name); strings.EqualFold(ext, markupExt) {
		name = strings.TrimSuffix(name, ext)
	}
	if strings.Contains(name, "_") {
		parts := strings.Split(name, "_")
		for i := range parts {
			parts[i] = capitalizeFirst(parts[i])
		}
		return strings.Join(parts, " ")
	}
	return capitalizeFirst(name)
}

// capitalizeFirst upper-cases the first rune and lower-cases the rest.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
