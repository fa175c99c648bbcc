// Package site loads the navigation scripts of one generated documentation
// directory and answers lookups against them.
package site

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgallion1/doxnav/internal/navtree"
)

// DataFile is the entry script every site has.
const DataFile = "navtreedata.js"

var (
	ErrNotFound        = errors.New("not found")
	ErrMissingSubIndex = errors.New("sub-index script missing")
)

// Site is a loaded documentation directory.
type Site struct {
	Name string
	Dir  string
	Data *navtree.Data
	// Parts holds every part script reachable from the tree, keyed by the
	// reference in the referring node.
	Parts map[string]*navtree.Part
	// SubIndices is indexed by chunk number; entries are nil when the
	// script is missing.
	SubIndices []*navtree.SubIndex
	// Missing lists referenced scripts that do not exist.
	Missing []string

	Fingerprint string
	LoadedAt    time.Time
}

// Fingerprint returns the SHA-256 of the site's navtreedata.js. The
// generator rewrites that file on every run.
func Fingerprint(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, DataFile))
	if err != nil {
		return "", err
	}
	return contentHashHex(b), nil
}

func contentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// Load reads navtreedata.js, the part scripts it references and the
// navtreeindex scripts named by its index.
func Load(name, dir string) (*Site, error) {
	raw, err := os.ReadFile(filepath.Join(dir, DataFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", DataFile, err)
	}
	data, err := navtree.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", DataFile, err)
	}

	s := &Site{
		Name:        name,
		Dir:         dir,
		Data:        data,
		Parts:       make(map[string]*navtree.Part),
		Fingerprint: contentHashHex(raw),
		LoadedAt:    time.Now(),
	}

	queue := navtree.PartNames(data.Tree)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if _, done := s.Parts[ref]; done {
			continue
		}
		p, err := loadPart(dir, ref)
		if errors.Is(err, fs.ErrNotExist) {
			s.Missing = append(s.Missing, ref+".js")
			s.Parts[ref] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		s.Parts[ref] = p
		queue = append(queue, navtree.PartNames(p.Nodes)...)
	}
	for ref, p := range s.Parts {
		if p == nil {
			delete(s.Parts, ref)
		}
	}

	s.SubIndices = make([]*navtree.SubIndex, len(data.Index))
	for i := range data.Index {
		file := fmt.Sprintf("navtreeindex%d.js", i)
		sub, err := loadSubIndex(filepath.Join(dir, file))
		if errors.Is(err, fs.ErrNotExist) {
			s.Missing = append(s.Missing, file)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.SubIndices[i] = sub
	}
	return s, nil
}

// loadPart reads the script behind a part reference. References may be
// paths relative to the site directory; the open is confined to it.
func loadPart(dir, ref string) (*navtree.Part, error) {
	if err := navtree.CheckPartRef(ref); err != nil {
		return nil, err
	}
	f, err := os.OpenInRoot(dir, filepath.FromSlash(ref)+".js")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := navtree.ParsePart(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s.js: %w", ref, err)
	}
	if want := navtree.PartVar(ref); p.Name != want {
		return nil, fmt.Errorf("%s.js declares var %s, want %s", ref, p.Name, want)
	}
	return p, nil
}

func loadSubIndex(file string) (*navtree.SubIndex, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sub, err := navtree.ParseSubIndex(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(file), err)
	}
	return sub, nil
}

// Children returns the children of n, following a part reference.
func (s *Site) Children(n *navtree.Node) []*navtree.Node {
	if n.Part != "" {
		if p, ok := s.Parts[n.Part]; ok {
			return p.Nodes
		}
		return nil
	}
	return n.Children
}

// Expand returns a copy of the tree with every part inlined.
func (s *Site) Expand() []*navtree.Node {
	var expand func(nodes []*navtree.Node, open map[string]bool) []*navtree.Node
	expand = func(nodes []*navtree.Node, open map[string]bool) []*navtree.Node {
		if nodes == nil {
			return nil
		}
		out := make([]*navtree.Node, len(nodes))
		for i, n := range nodes {
			c := &navtree.Node{Title: n.Title, Href: n.Href}
			switch p, ok := s.Parts[n.Part]; {
			case n.Part == "":
				c.Children = expand(n.Children, open)
			case !ok || open[n.Part]:
				// missing or self-referencing part stays a reference
				c.Part = n.Part
			default:
				open[n.Part] = true
				c.Children = expand(p.Nodes, open)
				delete(open, n.Part)
			}
			out[i] = c
		}
		return out
	}
	return expand(s.Data.Tree, make(map[string]bool))
}

// Expanded returns a copy of the data whose tree has every part inlined.
func (s *Site) Expanded() *navtree.Data {
	d := *s.Data
	d.Tree = s.Expand()
	return &d
}

// Problems validates the tree, every part and the site's file set.
func (s *Site) Problems() []navtree.Problem {
	problems := navtree.Validate(s.Data)
	names := make([]string, 0, len(s.Parts))
	for name := range s.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		problems = append(problems, navtree.ValidateNodes(name, s.Parts[name].Nodes)...)
	}
	for _, file := range s.Missing {
		problems = append(problems, navtree.Problem{
			Severity: navtree.SeverityError,
			Path:     file,
			Message:  "referenced script is missing",
		})
	}
	return problems
}

// Summary describes a loaded site.
type Summary struct {
	Name         string    `json:"name"`
	Dir          string    `json:"dir"`
	Title        string    `json:"title"`
	Fingerprint  string    `json:"fingerprint"`
	LoadedAt     time.Time `json:"loaded_at"`
	Nodes        int       `json:"nodes"`
	Parts        int       `json:"parts"`
	IndexEntries int       `json:"index_entries"`
	Missing      []string  `json:"missing"`
}

func (s *Site) Summary() Summary {
	title := ""
	if root := s.Data.Root(); root != nil {
		title = root.Title
	}
	missing := s.Missing
	if missing == nil {
		missing = []string{}
	}
	return Summary{
		Name:         s.Name,
		Dir:          s.Dir,
		Title:        title,
		Fingerprint:  s.Fingerprint,
		LoadedAt:     s.LoadedAt,
		Nodes:        navtree.Count(s.Expand()),
		Parts:        len(s.Parts),
		IndexEntries: len(s.Data.Index),
		Missing:      missing,
	}
}
