package navtree

import (
	"errors"
	"strings"
)

// SkipChildren is returned from a WalkFunc to skip the visited node's
// children.
var SkipChildren = errors.New("skip children")

// Visit describes a node reached during Walk.
type Visit struct {
	Node *Node
	// Path holds the child index at each level, starting at the top-level
	// list.
	Path []int
	// Breadcrumb holds the titles from the top-level entry down to Node.
	Breadcrumb []string
}

// Depth is zero for top-level entries.
func (v Visit) Depth() int {
	return len(v.Path) - 1
}

// Trail joins the breadcrumb for display.
func (v Visit) Trail() string {
	return strings.Join(v.Breadcrumb, " > ")
}

// WalkFunc is called for every node in depth-first order.
type WalkFunc func(v Visit) error

// Walk visits nodes depth first. Part references are not followed; expand
// them first when the full tree is needed. Path and Breadcrumb slices are
// only valid during the callback.
func Walk(nodes []*Node, fn WalkFunc) error {
	var path []int
	var crumbs []string
	var walk func(list []*Node) error
	walk = func(list []*Node) error {
		for i, n := range list {
			path = append(path, i)
			crumbs = append(crumbs, n.Title)
			err := fn(Visit{Node: n, Path: path, Breadcrumb: crumbs})
			switch {
			case errors.Is(err, SkipChildren):
			case err != nil:
				return err
			default:
				if err := walk(n.Children); err != nil {
					return err
				}
			}
			path = path[:len(path)-1]
			crumbs = crumbs[:len(crumbs)-1]
		}
		return nil
	}
	return walk(nodes)
}

// Count returns the number of nodes in the list, including descendants.
func Count(nodes []*Node) int {
	n := 0
	Walk(nodes, func(Visit) error {
		n++
		return nil
	})
	return n
}

// PartNames returns the distinct part script names referenced by nodes, in
// order of first appearance.
func PartNames(nodes []*Node) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(nodes, func(v Visit) error {
		if p := v.Node.Part; p != "" && !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
		return nil
	})
	return names
}
