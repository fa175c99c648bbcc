package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/dgallion1/doxnav/internal/navtree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Markdown is an outline of nested list items:
//
//	- [Title](page.html)
//	  - [Child](child.html) <!-- part: child_part -->
//	  - Heading without link
//
// Only the tree is represented; the index is empty after decoding and the
// toggle labels take their default values.
type Markdown struct{}

var partComment = regexp.MustCompile(`^<!--\s*part:\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*-->$`)

// ErrNoOutline is returned when a Markdown document contains no list.
var ErrNoOutline = errors.New("markdown document has no list outline")

func (Markdown) Decode(r io.Reader) (*navtree.Data, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var outline *ast.List
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if l, ok := n.(*ast.List); ok {
			outline = l
			break
		}
	}
	if outline == nil {
		return nil, ErrNoOutline
	}

	d := &navtree.Data{
		Tree:  listNodes(outline, src),
		Index: []string{},
	}
	d.EnsureSyncVars()
	return d, nil
}

// listNodes converts the items of a list, recursing into nested lists.
func listNodes(l *ast.List, src []byte) []*navtree.Node {
	var nodes []*navtree.Node
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		li, ok := item.(*ast.ListItem)
		if !ok {
			continue
		}
		n := &navtree.Node{}
		seenText := false
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			switch block := c.(type) {
			case *ast.List:
				n.Children = append(n.Children, listNodes(block, src)...)
			case *ast.TextBlock, *ast.Paragraph:
				if !seenText {
					fillEntry(n, block, src)
					seenText = true
				}
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// fillEntry takes title, href and part marker from the item's first line.
func fillEntry(n *navtree.Node, block ast.Node, src []byte) {
	var title strings.Builder
	for c := block.FirstChild(); c != nil; c = c.NextSibling() {
		switch inline := c.(type) {
		case *ast.Link:
			if n.Href == nil {
				href := string(inline.Destination)
				if u, err := url.Parse(href); err == nil && u.Scheme != "" {
					href = "^" + href
				}
				n.Href = &href
			}
		case *ast.RawHTML:
			if m := partComment.FindStringSubmatch(rawHTML(inline, src)); m != nil {
				n.Part = m[1]
				continue
			}
		}
		title.WriteString(inlineText(c, src))
	}
	n.Title = strings.TrimSpace(title.String())
}

func inlineText(n ast.Node, src []byte) string {
	switch t := n.(type) {
	case *ast.Text:
		s := string(util.UnescapePunctuations(t.Value(src)))
		if t.SoftLineBreak() || t.HardLineBreak() {
			s += " "
		}
		return s
	case *ast.String:
		return string(t.Value)
	case *ast.RawHTML:
		return rawHTML(t, src)
	}
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.WriteString(inlineText(c, src))
	}
	return b.String()
}

func rawHTML(n *ast.RawHTML, src []byte) string {
	var b bytes.Buffer
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}

func (Markdown) Encode(w io.Writer, d *navtree.Data) error {
	bw := bufio.NewWriter(w)
	var write func(nodes []*navtree.Node, depth int)
	write = func(nodes []*navtree.Node, depth int) {
		for _, n := range nodes {
			bw.WriteString(strings.Repeat("  ", depth))
			bw.WriteString("- ")
			if n.Href != nil {
				fmt.Fprintf(bw, "[%s](%s)", escapeMarkdown(n.Title), markdownDestination(n.URL()))
			} else {
				bw.WriteString(escapeMarkdown(n.Title))
			}
			if n.Part != "" {
				fmt.Fprintf(bw, " <!-- part: %s -->", n.Part)
			}
			bw.WriteByte('\n')
			write(n.Children, depth+1)
		}
	}
	write(d.Tree, 0)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("encode markdown: %w", err)
	}
	return nil
}

func (Markdown) ContentType() string {
	return "text/markdown; charset=utf-8"
}

var leadingOrdinal = regexp.MustCompile(`^(\d+)([.)])`)

// escapeMarkdown escapes characters that would otherwise start inline
// markup or a block construct.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '[', ']', '*', '_', '`', '<', '>', '&', '!', '|', '~':
			b.WriteByte('\\')
		case '#', '+', '-', '=':
			if i == 0 {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	out := b.String()
	if m := leadingOrdinal.FindStringSubmatchIndex(out); m != nil {
		out = out[:m[4]] + "\\" + out[m[4]:]
	}
	return out
}

func markdownDestination(href string) string {
	if strings.ContainsAny(href, " ()<>") {
		return "<" + strings.ReplaceAll(href, ">", "%3E") + ">"
	}
	return href
}
