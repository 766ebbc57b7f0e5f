// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// NodeKind distinguishes folders from documents.
type NodeKind string

const (
	KindFolder   NodeKind = "FOLDER"
	KindDocument NodeKind = "DOCUMENT"
)

// Valid reports whether the kind is one of the closed enumeration values.
func (k NodeKind) Valid() bool { return k == KindFolder || k == KindDocument }

// PermissionLevel is a group access level stored on a grant.
type PermissionLevel string

const (
	LevelRead  PermissionLevel = "READ"
	LevelWrite PermissionLevel = "WRITE"
)

// Valid reports whether the level is one of the closed enumeration values.
func (l PermissionLevel) Valid() bool { return l == LevelRead || l == LevelWrite }

// Node is a single entry in the document tree. Content is only meaningful for
// documents; folders carry an empty string. A nil ParentID marks a root.
type Node struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Kind      NodeKind   `json:"kind"`
	Content   string     `json:"content"`
	ParentID  *uuid.UUID `json:"parentId"`
	SortOrder int        `json:"order"` // sibling sort hint, not unique
	CreatedBy string     `json:"createdBy"`
	UpdatedBy string     `json:"updatedBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// Deleted reports whether the node is soft-deleted.
func (n *Node) Deleted() bool { return n.DeletedAt != nil }

// Version is an immutable full content snapshot of a document node.
// Numbers start at 1 and increase without gaps per node.
type Version struct {
	ID        uuid.UUID `json:"id"`
	NodeID    uuid.UUID `json:"nodeId"`
	Content   string    `json:"content"`
	Number    int64     `json:"versionNumber"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// PermissionGrant links a user group to a node with an access level.
// At most one grant exists per (node, group) pair.
type PermissionGrant struct {
	ID        uuid.UUID       `json:"id"`
	NodeID    uuid.UUID       `json:"nodeId"`
	GroupID   string          `json:"groupId"`
	Level     PermissionLevel `json:"level"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TreeNode is a node with its live children nested, ordered by sort hint.
type TreeNode struct {
	Node
	Children []*TreeNode `json:"children"`
}
