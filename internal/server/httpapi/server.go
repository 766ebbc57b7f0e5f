// Package httpapi exposes the document store over the REST surface consumed
// by the UI.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mpue/cflux-sub004/internal/limiter"
	"github.com/mpue/cflux-sub004/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	tree     service.TreeService
	versions service.VersionService
	perms    service.PermissionService
	importer service.ImportService
	backup   service.BackupService

	// lim rations import and snapshot restore; nil disables throttling.
	lim limiter.Limiter

	log            *zap.Logger
	maxImportBytes int64
}

// New constructs a Server with injected services.
func New(
	tree service.TreeService,
	versions service.VersionService,
	perms service.PermissionService,
	importer service.ImportService,
	backup service.BackupService,
	lim limiter.Limiter,
	log *zap.Logger,
	maxImportBytes int64,
) *Server {
	if maxImportBytes <= 0 {
		maxImportBytes = 32 << 20
	}
	return &Server{
		tree:           tree,
		versions:       versions,
		perms:          perms,
		importer:       importer,
		backup:         backup,
		lim:            lim,
		log:            log,
		maxImportBytes: maxImportBytes,
	}
}

// Router builds the route table wrapped with recovery and request logging.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/documents/tree", s.handleTree)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetNode)
	mux.HandleFunc("GET /api/documents/{id}/content", s.handleGetContent)
	mux.HandleFunc("GET /api/documents/{id}/breadcrumb", s.handleBreadcrumb)
	mux.HandleFunc("POST /api/documents", s.handleCreate)
	mux.HandleFunc("PATCH /api/documents/{id}", s.handleRename)
	mux.HandleFunc("PUT /api/documents/{id}/content", s.handleUpdateContent)
	mux.HandleFunc("POST /api/documents/{id}/move", s.handleMove)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDelete)

	mux.HandleFunc("GET /api/documents/{id}/versions", s.handleListVersions)
	mux.HandleFunc("GET /api/documents/{id}/versions/{versionId}", s.handleGetVersion)
	mux.HandleFunc("POST /api/documents/{id}/versions/{versionId}/restore", s.handleRestoreVersion)

	mux.HandleFunc("GET /api/documents/{id}/permissions", s.handleListGrants)
	mux.HandleFunc("PUT /api/documents/{id}/permissions", s.handleGrant)
	mux.HandleFunc("DELETE /api/documents/{id}/permissions/{groupId}", s.handleRevoke)

	mux.HandleFunc("POST /api/documents/import", s.handleImport)

	mux.HandleFunc("GET /api/backup", s.handleBackup)
	mux.HandleFunc("POST /api/backup/restore", s.handleRestoreSnapshot)

	var h http.Handler = mux
	h = Logging(s.log)(h)
	h = Recover(s.log)(h)
	return h
}
