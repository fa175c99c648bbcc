// Package navtree models the navigation metadata a documentation generator
// writes next to an HTML site: the sidebar tree, the anchor index and the
// small string constants used by the viewer script.
package navtree

import "strings"

// Well-known declaration names in navtreedata.js.
const (
	TreeVar    = "NAVTREE"
	IndexVar   = "NAVTREEINDEX"
	SyncOnVar  = "SYNCONMSG"
	SyncOffVar = "SYNCOFFMSG"
)

// Node is one navigation entry.
//
// A node is a leaf when both Children is nil and Part is empty. Children
// must never be a non-nil empty slice in well-formed data.
type Node struct {
	Title    string  `yaml:"title"`
	Href     *string `yaml:"href"`
	Children []*Node `yaml:"children,omitempty"`
	// Part references a separately loaded script holding the children:
	// a script name, or a path relative to the site without ".js".
	Part string `yaml:"part,omitempty"`
}

// Link returns the href and whether it is set.
func (n *Node) Link() (string, bool) {
	if n.Href == nil {
		return "", false
	}
	return *n.Href, true
}

// IsExternal reports whether the href is an external link. The generator
// marks those with a leading caret.
func (n *Node) IsExternal() bool {
	return n.Href != nil && strings.HasPrefix(*n.Href, "^")
}

// URL returns the href with the external marker stripped.
func (n *Node) URL() string {
	if n.Href == nil {
		return ""
	}
	return strings.TrimPrefix(*n.Href, "^")
}

// Var is a trailing string declaration such as SYNCONMSG.
type Var struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Data is the parsed content of navtreedata.js.
type Data struct {
	// Preamble is the text before the first declaration (usually a licence
	// comment), kept verbatim.
	Preamble string   `json:"preamble,omitempty" yaml:"preamble,omitempty"`
	Tree     []*Node  `json:"navtree" yaml:"navtree"`
	Index    []string `json:"index" yaml:"index"`
	// NoIndex records that the source had no NAVTREEINDEX declaration.
	// Write omits the declaration when this is set and Index is empty.
	NoIndex bool  `json:"no_index,omitempty" yaml:"no_index,omitempty"`
	Vars    []Var `json:"vars,omitempty" yaml:"vars,omitempty"`
	// Trailer is the text after the last declaration, kept verbatim.
	Trailer string `json:"trailer,omitempty" yaml:"trailer,omitempty"`
}

// Var returns the value of the named trailing declaration.
func (d *Data) Var(name string) (string, bool) {
	for _, v := range d.Vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// SetVar updates or appends a trailing declaration.
func (d *Data) SetVar(name, value string) {
	for i := range d.Vars {
		if d.Vars[i].Name == name {
			d.Vars[i].Value = value
			return
		}
	}
	d.Vars = append(d.Vars, Var{Name: name, Value: value})
}

// SyncOnMsg is the label shown while panel synchronisation is enabled.
func (d *Data) SyncOnMsg() string {
	v, _ := d.Var(SyncOnVar)
	return v
}

// SyncOffMsg is the label shown while panel synchronisation is disabled.
func (d *Data) SyncOffMsg() string {
	v, _ := d.Var(SyncOffVar)
	return v
}

// Root returns the first top-level node, which the viewer treats as the
// site root, or nil for an empty tree.
func (d *Data) Root() *Node {
	if len(d.Tree) == 0 {
		return nil
	}
	return d.Tree[0]
}

// Part is a lazily loaded children script: var <Name> = [ ... ];
type Part struct {
	Name     string  `json:"name" yaml:"name"`
	Nodes    []*Node `json:"nodes" yaml:"nodes"`
	Preamble string  `json:"-" yaml:"-"`
	Trailer  string  `json:"-" yaml:"-"`
}

// SubIndexEntry maps a page URL to the child-index path of its node.
type SubIndexEntry struct {
	URL  string `json:"url" yaml:"url"`
	Path []int  `json:"path" yaml:"path"`
}

// SubIndex is one navtreeindexN.js script.
type SubIndex struct {
	Name     string          `json:"name" yaml:"name"`
	Entries  []SubIndexEntry `json:"entries" yaml:"entries"`
	Preamble string          `json:"-" yaml:"-"`
	Trailer  string          `json:"-" yaml:"-"`
}

// Lookup returns the path stored for url.
func (s *SubIndex) Lookup(url string) ([]int, bool) {
	for _, e := range s.Entries {
		if e.URL == url {
			return e.Path, true
		}
	}
	return nil, false
}

// Default toggle labels written by the generator.
const (
	DefaultSyncOnMsg  = "click to disable panel synchronisation"
	DefaultSyncOffMsg = "click to enable panel synchronisation"
)

// EnsureSyncVars adds the toggle label declarations when they are missing.
func (d *Data) EnsureSyncVars() {
	if _, ok := d.Var(SyncOnVar); !ok {
		d.SetVar(SyncOnVar, DefaultSyncOnMsg)
	}
	if _, ok := d.Var(SyncOffVar); !ok {
		d.SetVar(SyncOffVar, DefaultSyncOffMsg)
	}
}
