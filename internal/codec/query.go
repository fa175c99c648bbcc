package codec

import (
	"fmt"

	"github.com/dgallion1/doxnav/internal/navtree"
	"github.com/ohler55/ojg/jp"
)

// Generic converts d into plain maps and slices:
//
//	{"navtree": [{"title", "href", "children", "part"}...], "index": [...], "vars": {...}}
//
// Leaves have a nil "children" value and "part" is present only when set.
func Generic(d *navtree.Data) map[string]any {
	index := make([]any, len(d.Index))
	for i, u := range d.Index {
		index[i] = u
	}
	vars := make(map[string]any, len(d.Vars))
	for _, v := range d.Vars {
		vars[v.Name] = v.Value
	}
	return map[string]any{
		"navtree": genericNodes(d.Tree),
		"index":   index,
		"vars":    vars,
	}
}

func genericNodes(nodes []*navtree.Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		m := map[string]any{
			"title": n.Title,
			"href":  nil,
		}
		if n.Href != nil {
			m["href"] = *n.Href
		}
		if n.Children != nil {
			m["children"] = genericNodes(n.Children)
		} else {
			m["children"] = nil
		}
		if n.Part != "" {
			m["part"] = n.Part
		}
		out[i] = m
	}
	return out
}

// Query evaluates a JSONPath expression against the generic form of d.
func Query(d *navtree.Data, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return x.Get(Generic(d)), nil
}
