package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameLength is the longest node name accepted, counted in characters
const MaxNameLength = 200

// Node is a single entry in the forest. A nil ParentID marks a tree root.
// ID and CreatedAt are fixed at construction and have no setters.
type Node struct {
	id        uuid.UUID
	name      string
	parentID  *uuid.UUID
	createdAt time.Time
}

// NewNode creates a node with a fresh identifier and the given parent reference
func NewNode(name string, parentID *uuid.UUID) (*Node, error) {
	n := &Node{
		id:        uuid.New(),
		parentID:  copyID(parentID),
		createdAt: time.Now().UTC(),
	}
	if err := n.Rename(name); err != nil {
		return nil, err
	}
	return n, nil
}

// RestoreNode rebuilds a node that was already persisted
func RestoreNode(id uuid.UUID, name string, parentID *uuid.UUID, createdAt time.Time) *Node {
	return &Node{
		id:        id,
		name:      name,
		parentID:  copyID(parentID),
		createdAt: createdAt,
	}
}

// Rename replaces the node name, enforcing the same rule as construction
func (n *Node) Rename(name string) error {
	trimmed, err := NormalizeName(name)
	if err != nil {
		return err
	}
	n.name = trimmed
	return nil
}

func (n *Node) ID() uuid.UUID        { return n.id }
func (n *Node) Name() string         { return n.name }
func (n *Node) CreatedAt() time.Time { return n.createdAt }

// ParentID returns a copy of the parent reference, or nil for a root
func (n *Node) ParentID() *uuid.UUID { return copyID(n.parentID) }

// IsRoot reports whether the node has no parent
func (n *Node) IsRoot() bool { return n.parentID == nil }

// ToDTO returns the public projection of the node
func (n *Node) ToDTO() *NodeDTO {
	return &NodeDTO{
		ID:       n.id,
		Name:     n.name,
		ParentID: copyID(n.parentID),
	}
}

// NormalizeName trims the name and checks it is non-empty and not too long
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", &ValidationError{Field: "name", Message: "name must be at most 200 characters"}
	}
	return trimmed, nil
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
