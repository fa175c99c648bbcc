package site

import (
	"fmt"
	"strings"

	"github.com/dgallion1/doxnav/internal/linkcheck"
	"github.com/dgallion1/doxnav/internal/navtree"
)

// Breadcrumb is the position of a page in the navigation tree.
type Breadcrumb struct {
	URL      string   `json:"url"`
	Chunk    int      `json:"chunk"`
	Fallback bool     `json:"fallback"`
	Path     []int    `json:"path"`
	Titles   []string `json:"titles"`
	Hrefs    []string `json:"hrefs"`
}

// Resolve finds url in the tree the way the viewer does: the anchor index
// selects a navtreeindex script, which holds the child-index path from the
// root entry. A URL with an unknown fragment falls back to its page.
func (s *Site) Resolve(url string) (*Breadcrumb, error) {
	root := s.Data.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: site has no root entry", ErrNotFound)
	}

	url = navtree.NormalizeAnchor(url)
	chunk, fallback := navtree.Locate(s.Data.Index, url)
	bc := &Breadcrumb{
		URL:      url,
		Chunk:    chunk,
		Fallback: fallback,
		Path:     []int{},
		Titles:   []string{root.Title},
		Hrefs:    []string{root.URL()},
	}

	page, _, _ := strings.Cut(url, "#")
	if fallback || page == root.URL() {
		return bc, nil
	}

	if chunk >= len(s.SubIndices) || s.SubIndices[chunk] == nil {
		return nil, fmt.Errorf("%w: navtreeindex%d.js", ErrMissingSubIndex, chunk)
	}
	sub := s.SubIndices[chunk]
	path, ok := sub.Lookup(url)
	if !ok {
		path, ok = sub.Lookup(page)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	node := root
	for depth, i := range path {
		kids := s.Children(node)
		if i >= len(kids) {
			return nil, fmt.Errorf("%w: %s: index %d out of range at depth %d", ErrNotFound, url, i, depth)
		}
		node = kids[i]
		bc.Path = append(bc.Path, i)
		bc.Titles = append(bc.Titles, node.Title)
		bc.Hrefs = append(bc.Hrefs, node.URL())
	}
	return bc, nil
}

// Links returns every distinct internal URL named by the tree, the anchor
// index and the sub-index scripts. External links are skipped.
func (s *Site) Links() []linkcheck.Link {
	var links []linkcheck.Link
	seen := make(map[string]bool)
	add := func(source, url string) {
		if url == "" || strings.HasPrefix(url, "^") || seen[url] {
			return
		}
		seen[url] = true
		links = append(links, linkcheck.Link{Source: source, URL: url})
	}

	navtree.Walk(s.Expand(), func(v navtree.Visit) error {
		if href, ok := v.Node.Link(); ok {
			add(v.Trail(), href)
		}
		return nil
	})
	for i, u := range s.Data.Index {
		add(fmt.Sprintf("%s[%d]", navtree.IndexVar, i), u)
	}
	for i, sub := range s.SubIndices {
		if sub == nil {
			continue
		}
		for _, e := range sub.Entries {
			add(fmt.Sprintf("navtreeindex%d.js", i), e.URL)
		}
	}
	return links
}
