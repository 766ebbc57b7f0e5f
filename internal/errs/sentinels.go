// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Domain sentinels shared by repo/service layers and mapped to HTTP status codes
// at the server boundary.
var (
	// ErrNotFound indicates the requested node, version or grant does not exist
	// (or is soft-deleted where only live entities are addressable).
	ErrNotFound = errors.New("not found")

	// ErrInvalidParent indicates the referenced parent is missing, soft-deleted
	// or not a folder.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrCycleDetected indicates a move that would make a node its own ancestor.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrInvalidKind indicates a content operation attempted on a folder.
	ErrInvalidKind = errors.New("invalid node kind")

	// ErrConflict indicates a lost concurrent version-number race.
	ErrConflict = errors.New("version conflict")

	// ErrInvalidArchive indicates a malformed import archive.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrRenderFailed indicates markup rendering failed during import.
	ErrRenderFailed = errors.New("render failed")

	// ErrNotEmpty indicates a snapshot restore was attempted into a non-empty store.
	ErrNotEmpty = errors.New("store not empty")
)
