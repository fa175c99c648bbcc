// Package linkcheck verifies that navigation URLs point at generated pages
// and anchors that exist on disk.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

var (
	ErrMissingPage   = errors.New("page not found")
	ErrMissingAnchor = errors.New("anchor not found")
	ErrNoPage        = errors.New("url has no page")
)

// Link is a URL to check together with where it was found.
type Link struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// Result is the outcome for one link. Err is empty when the link is fine.
type Result struct {
	Link
	Err string `json:"error,omitempty"`
}

// Checker resolves links against a site root. Parsed anchor sets are
// cached, so a Checker can be shared by concurrent callers.
type Checker struct {
	root string

	mu    sync.Mutex
	pages map[string]*page
}

type page struct {
	once    sync.Once
	anchors map[string]bool
	err     error
}

func NewChecker(root string) *Checker {
	return &Checker{
		root:  root,
		pages: make(map[string]*page),
	}
}

// Check verifies a single relative URL.
func (c *Checker) Check(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Path == "" {
		return ErrNoPage
	}

	p := c.page(u.Path)
	p.once.Do(func() {
		p.anchors, p.err = loadAnchors(c.filePath(u.Path))
	})
	if p.err != nil {
		return p.err
	}
	if u.Fragment != "" && !p.anchors[u.Fragment] {
		return fmt.Errorf("%w: #%s in %s", ErrMissingAnchor, u.Fragment, u.Path)
	}
	return nil
}

func (c *Checker) page(p string) *page {
	c.mu.Lock()
	defer c.mu.Unlock()
	pg, ok := c.pages[p]
	if !ok {
		pg = &page{}
		c.pages[p] = pg
	}
	return pg
}

// filePath maps a URL path to a file under root; ".." cannot escape it.
func (c *Checker) filePath(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	return filepath.Join(c.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

func loadAnchors(file string) (map[string]bool, error) {
	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingPage, filepath.Base(file))
		}
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", filepath.Base(file), err)
	}
	anchors := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" || (a.Key == "name" && n.Data == "a") {
					anchors[a.Val] = true
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return anchors, nil
}

// Run checks links with at most concurrency checks in flight. onResult is
// called once per link from a single goroutine, in completion order.
func Run(ctx context.Context, c *Checker, links []Link, concurrency int, onResult func(Result)) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make(chan Result, len(links))
	sem := make(chan struct{}, concurrency)

	go func() {
		for _, l := range links {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- Result{Link: l, Err: ctx.Err().Error()}
				continue
			}
			go func(l Link) {
				defer func() { <-sem }()
				r := Result{Link: l}
				if err := c.Check(ctx, l.URL); err != nil {
					r.Err = err.Error()
				}
				results <- r
			}(l)
		}
	}()

	for range links {
		onResult(<-results)
	}
}
