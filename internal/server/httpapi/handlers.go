package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpue/cflux-sub004/internal/errs"
	"github.com/mpue/cflux-sub004/internal/model"
	"github.com/mpue/cflux-sub004/internal/service"
)

// actorHeader carries the opaque identity assigned by the external identity
// provider. It is stored verbatim and never validated here.
const actorHeader = "X-Actor-Id"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidParent),
		errors.Is(err, errs.ErrInvalidKind),
		errors.Is(err, errs.ErrInvalidArchive):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrCycleDetected),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrNotEmpty):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrRenderFailed):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError && isValidation(err) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// isValidation recognizes the service layer's input validation errors.
func isValidation(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "validation:")
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.FromString(r.PathValue(name))
}

func actor(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Tree ---

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var rootID *uuid.UUID
	if raw := r.URL.Query().Get("rootId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid rootId"})
			return
		}
		rootID = &id
	}
	tree, err := s.tree.Tree(r.Context(), rootID)
	if err != nil {
		writeError(w, err)
		return
	}
	if tree == nil {
		tree = []*model.TreeNode{}
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	node, err := s.tree.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	content, err := s.tree.GetContent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleBreadcrumb(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	path, err := s.tree.Breadcrumb(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

type createNodeRequest struct {
	Title    string         `json:"title"`
	Kind     model.NodeKind `json:"kind"`
	ParentID *uuid.UUID     `json:"parentId"`
	Content  string         `json:"content"`
	Order    *int           `json:"order"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	node, err := s.tree.Create(r.Context(), service.CreateNode{
		Kind:     req.Kind,
		Title:    req.Title,
		ParentID: req.ParentID,
		Content:  req.Content,
		Order:    req.Order,
		Actor:    actor(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	node, err := s.tree.Rename(r.Context(), id, req.Title, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

type contentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	node, err := s.tree.UpdateContent(r.Context(), id, req.Content, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

type moveRequest struct {
	NewParentID *uuid.UUID `json:"newParentId"`
	Order       *int       `json:"newOrder"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req moveRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	node, err := s.tree.Move(r.Context(), id, service.MoveNode{
		NewParentID: req.NewParentID,
		Order:       req.Order,
		Actor:       actor(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	n, err := s.tree.Delete(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// --- Versions ---

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	versions, err := s.versions.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if versions == nil {
		versions = []model.Version{}
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	versionID, err := pathID(r, "versionId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid version id"})
		return
	}
	v, err := s.versions.Get(r.Context(), id, versionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type restoreVersionResponse struct {
	Node    *model.Node    `json:"node"`
	Version *model.Version `json:"version"`
}

func (s *Server) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	versionID, err := pathID(r, "versionId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid version id"})
		return
	}
	node, v, err := s.versions.Restore(r.Context(), id, versionID, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restoreVersionResponse{Node: node, Version: v})
}

// --- Permissions ---

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	grants, err := s.perms.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if grants == nil {
		grants = []model.PermissionGrant{}
	}
	writeJSON(w, http.StatusOK, grants)
}

type grantRequest struct {
	GroupID string                `json:"groupId"`
	Level   model.PermissionLevel `json:"level"`
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req grantRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	g, err := s.perms.Grant(r.Context(), id, req.GroupID, req.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	groupID := r.PathValue("groupId")
	if err := s.perms.Revoke(r.Context(), id, groupID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// throttle records one attempt against the limiter. It reports false after
// writing the 429 response, so callers just return.
func (s *Server) throttle(w http.ResponseWriter, r *http.Request, op string) bool {
	if s.lim == nil {
		return true
	}
	ok, retry, err := s.lim.Take(r.Context(), actor(r), op)
	if err != nil {
		writeError(w, err)
		return false
	}
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)+1))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		return false
	}
	return true
}

// --- Import ---

type importResponse struct {
	RootFolderID    uuid.UUID `json:"rootFolderId"`
	RootFolderTitle string    `json:"rootFolderTitle"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.throttle(w, r, "import") {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImportBytes)
	if err := r.ParseMultipartForm(s.maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
		return
	}

	var parentID *uuid.UUID
	if raw := r.FormValue("parentId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid parentId"})
			return
		}
		parentID = &id
	}

	file, header, err := r.FormFile("archive")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing archive file"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable archive"})
		return
	}

	root, err := s.importer.Import(r.Context(), payload, header.Filename, parentID, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{RootFolderID: root.ID, RootFolderTitle: root.Title})
}

// --- Backup / Restore ---

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backup.Backup(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="document-store-backup.json"`)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.throttle(w, r, "restore") {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImportBytes)
	var snap model.Snapshot
	if err := decode(r, &snap); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snapshot body"})
		return
	}
	if err := s.backup.Restore(r.Context(), &snap); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
