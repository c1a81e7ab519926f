package domain

import "strings"

// MaxCategoryDepth is the deepest menu level that is kept. Level 0 is the top-level menu.
const MaxCategoryDepth = 2

// depthAllowed lists which menu depths are included in the tree.
var depthAllowed = map[int]bool{
	0: true,
	1: true,
	2: true,
}

// DepthAllowed reports whether nodes at depth are part of the category tree.
func DepthAllowed(depth int) bool {
	return depthAllowed[depth]
}

// CanDescend reports whether children of a node at depth are part of the tree.
func CanDescend(depth int) bool {
	return DepthAllowed(depth + 1)
}

// CategoryNode is one entry of the storefront navigation.
// A node without children must carry a link; a node with children is not crawled itself.
type CategoryNode struct {
	Title    string          `json:"title"`
	Link     string          `json:"link,omitempty"`
	Children []*CategoryNode `json:"submenu,omitempty"`
	Depth    int             `json:"-"`
}

func (n *CategoryNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is the persisted form of the navigation: {"main_menu": [...]}.
type Tree struct {
	MainMenu []*CategoryNode `json:"main_menu"`
}

// NewTree wraps top-level nodes and recomputes depths.
func NewTree(nodes []*CategoryNode) *Tree {
	t := &Tree{MainMenu: nodes}
	t.AssignDepths()
	return t
}

// Leaf is a crawlable category together with its title path from the top-level menu.
type Leaf struct {
	Node *CategoryNode
	Path []string
}

// PathKey joins the hierarchy into a stable key.
func (l Leaf) PathKey() string {
	return strings.Join(l.Path, " > ")
}

type treeFrame struct {
	node *CategoryNode
	path []string
}

// AssignDepths walks the tree iteratively and sets Depth on every node.
func (t *Tree) AssignDepths() {
	type frame struct {
		node  *CategoryNode
		depth int
	}

	stack := make([]frame, 0, len(t.MainMenu))
	for i := len(t.MainMenu) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: t.MainMenu[i], depth: 0})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil {
			continue
		}

		f.node.Depth = f.depth
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], depth: f.depth + 1})
		}
	}
}

// Leaves returns every crawlable category in menu order.
//
// Children are only followed while the depth table allows it. A node at the
// deepest allowed level is crawled through its own link even if it nominally
// has children; nodes without a link that cannot be descended are skipped.
func (t *Tree) Leaves() []Leaf {
	var leaves []Leaf

	stack := make([]treeFrame, 0, len(t.MainMenu))
	for i := len(t.MainMenu) - 1; i >= 0; i-- {
		stack = append(stack, treeFrame{node: t.MainMenu[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil {
			continue
		}

		depth := len(f.path)
		if !DepthAllowed(depth) {
			continue
		}

		path := make([]string, len(f.path), len(f.path)+1)
		copy(path, f.path)
		path = append(path, f.node.Title)

		if !f.node.IsLeaf() && CanDescend(depth) {
			for i := len(f.node.Children) - 1; i >= 0; i-- {
				stack = append(stack, treeFrame{node: f.node.Children[i], path: path})
			}
			continue
		}

		if f.node.Link == "" {
			continue
		}

		leaves = append(leaves, Leaf{Node: f.node, Path: path})
	}

	return leaves
}

// Count returns the number of nodes in the tree.
func (t *Tree) Count() int {
	count := 0
	stack := append([]*CategoryNode(nil), t.MainMenu...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		count++
		stack = append(stack, n.Children...)
	}
	return count
}
