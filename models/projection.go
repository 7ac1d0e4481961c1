package models

import "github.com/google/uuid"

// NodeDTO is the externally visible shape of a node
type NodeDTO struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId"`
}

// TreeNode is a node projection together with its children
type TreeNode struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	ParentID *uuid.UUID  `json:"parentId"`
	Children []*TreeNode `json:"children"`
}

// NewTreeNode creates a childless tree node from a projection
func NewTreeNode(dto *NodeDTO) *TreeNode {
	return &TreeNode{
		ID:       dto.ID,
		Name:     dto.Name,
		ParentID: dto.ParentID,
		Children: make([]*TreeNode, 0),
	}
}

// AddChild adds a child node to the current node
func (n *TreeNode) AddChild(child *TreeNode) {
	n.Children = append(n.Children, child)
}
