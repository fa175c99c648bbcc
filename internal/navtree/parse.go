package navtree

import (
	"fmt"
	"io"
	"strconv"
)

// Parse reads navtreedata.js.
func Parse(r io.Reader) (*Data, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read navtree data: %w", err)
	}
	p := &parser{s: newScanner(src)}

	first, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	d := &Data{Preamble: string(src[:first.off])}

	seen := make(map[string]bool)
	var last token
	for {
		t, err := p.s.peek()
		if err != nil {
			return nil, err
		}
		if t.kind == tokEOF {
			if !seen[TreeVar] {
				return nil, p.s.errorf(t.line, t.col, "missing var %s", TreeVar)
			}
			break
		}

		name, err := p.declStart()
		if err != nil {
			return nil, err
		}
		if seen[name.text] {
			return nil, p.s.errorf(name.line, name.col, "duplicate declaration of %s", name.text)
		}
		seen[name.text] = true

		switch name.text {
		case TreeVar:
			d.Tree, err = p.parseNodeList()
		case IndexVar:
			d.Index, err = p.parseStringList()
		default:
			var v token
			v, err = p.s.next()
			if err == nil && v.kind != tokString {
				err = p.s.errorf(v.line, v.col, "unsupported value for %s: %s", name.text, v.describe())
			}
			d.Vars = append(d.Vars, Var{Name: name.text, Value: v.text})
		}
		if err != nil {
			return nil, err
		}
		if last, err = p.expectPunct(";"); err != nil {
			return nil, err
		}
	}

	d.NoIndex = !seen[IndexVar]
	d.Trailer = string(src[last.end:])
	return d, nil
}

// ParsePart reads a children script such as modules.js.
func ParsePart(r io.Reader) (*Part, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read part: %w", err)
	}
	p := &parser{s: newScanner(src)}

	first, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	name, err := p.declStart()
	if err != nil {
		return nil, err
	}
	nodes, err := p.parseNodeList()
	if err != nil {
		return nil, err
	}
	last, err := p.expectPunct(";")
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return &Part{
		Name:     name.text,
		Nodes:    nodes,
		Preamble: string(src[:first.off]),
		Trailer:  string(src[last.end:]),
	}, nil
}

// ParseSubIndex reads a navtreeindexN.js script.
func ParseSubIndex(r io.Reader) (*SubIndex, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sub-index: %w", err)
	}
	p := &parser{s: newScanner(src)}

	first, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	name, err := p.declStart()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	idx := &SubIndex{Name: name.text, Preamble: string(src[:first.off])}
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokPunct && t.text == "}" {
			break
		}
		if t.kind != tokString {
			return nil, p.s.errorf(t.line, t.col, "expected url key, got %s", t.describe())
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		path, err := p.parseIntList()
		if err != nil {
			return nil, err
		}
		idx.Entries = append(idx.Entries, SubIndexEntry{URL: t.text, Path: path})

		more, err := p.listSep("}")
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	last, err := p.expectPunct(";")
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	idx.Trailer = string(src[last.end:])
	return idx, nil
}

type parser struct {
	s *scanner
}

// declStart consumes "var NAME =" and returns the NAME token.
func (p *parser) declStart() (token, error) {
	kw, err := p.s.next()
	if err != nil {
		return token{}, err
	}
	if kw.kind != tokIdent || kw.text != "var" {
		return token{}, p.s.errorf(kw.line, kw.col, "expected var declaration, got %s", kw.describe())
	}
	name, err := p.s.next()
	if err != nil {
		return token{}, err
	}
	if name.kind != tokIdent {
		return token{}, p.s.errorf(name.line, name.col, "expected identifier, got %s", name.describe())
	}
	if _, err := p.expectPunct("="); err != nil {
		return token{}, err
	}
	return name, nil
}

func (p *parser) expectPunct(ch string) (token, error) {
	t, err := p.s.next()
	if err != nil {
		return token{}, err
	}
	if t.kind != tokPunct || t.text != ch {
		return token{}, p.s.errorf(t.line, t.col, "expected %q, got %s", ch, t.describe())
	}
	return t, nil
}

func (p *parser) expectEOF() error {
	t, err := p.s.next()
	if err != nil {
		return err
	}
	if t.kind != tokEOF {
		return p.s.errorf(t.line, t.col, "unexpected %s after declaration", t.describe())
	}
	return nil
}

// listSep consumes the separator after a list element. It reports whether
// another element follows; a trailing comma before the closing bracket is
// accepted.
func (p *parser) listSep(closing string) (bool, error) {
	t, err := p.s.next()
	if err != nil {
		return false, err
	}
	if t.kind == tokPunct && t.text == closing {
		return false, nil
	}
	if t.kind != tokPunct || t.text != "," {
		return false, p.s.errorf(t.line, t.col, "expected \",\" or %q, got %s", closing, t.describe())
	}
	n, err := p.s.peek()
	if err != nil {
		return false, err
	}
	if n.kind == tokPunct && n.text == closing {
		p.s.next()
		return false, nil
	}
	return true, nil
}

// openList consumes "[" and reports whether the list is empty ("[]").
func (p *parser) openList() (bool, error) {
	if _, err := p.expectPunct("["); err != nil {
		return false, err
	}
	t, err := p.s.peek()
	if err != nil {
		return false, err
	}
	if t.kind == tokPunct && t.text == "]" {
		p.s.next()
		return true, nil
	}
	return false, nil
}

func (p *parser) parseNodeList() ([]*Node, error) {
	nodes := []*Node{}
	empty, err := p.openList()
	if err != nil || empty {
		return nodes, err
	}
	for {
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		more, err := p.listSep("]")
		if err != nil {
			return nil, err
		}
		if !more {
			return nodes, nil
		}
	}
}

// parseNode reads [ "title", "href"|null, null|"part"|[ ... ] ].
func (p *parser) parseNode() (*Node, error) {
	open, err := p.expectPunct("[")
	if err != nil {
		return nil, err
	}

	title, err := p.s.next()
	if err != nil {
		return nil, err
	}
	if title.kind != tokString {
		return nil, p.s.errorf(title.line, title.col, "expected title string, got %s", title.describe())
	}
	n := &Node{Title: title.text}

	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	href, err := p.s.next()
	if err != nil {
		return nil, err
	}
	switch {
	case href.kind == tokString:
		h := href.text
		n.Href = &h
	case href.kind == tokIdent && href.text == "null":
	default:
		return nil, p.s.errorf(href.line, href.col, "expected href string or null, got %s", href.describe())
	}

	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	third, err := p.s.peek()
	if err != nil {
		return nil, err
	}
	switch {
	case third.kind == tokString:
		p.s.next()
		if third.text == "" {
			return nil, p.s.errorf(third.line, third.col, "empty part name")
		}
		n.Part = third.text
	case third.kind == tokIdent && third.text == "null":
		p.s.next()
	case third.kind == tokPunct && third.text == "[":
		if n.Children, err = p.parseNodeList(); err != nil {
			return nil, err
		}
	default:
		return nil, p.s.errorf(third.line, third.col, "expected children, part name or null, got %s", third.describe())
	}

	more, err := p.listSep("]")
	if err != nil {
		return nil, err
	}
	if more {
		return nil, p.s.errorf(open.line, open.col, "navigation entry has more than three elements")
	}
	return n, nil
}

func (p *parser) parseStringList() ([]string, error) {
	out := []string{}
	empty, err := p.openList()
	if err != nil || empty {
		return out, err
	}
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		if t.kind != tokString {
			return nil, p.s.errorf(t.line, t.col, "expected string, got %s", t.describe())
		}
		out = append(out, t.text)
		more, err := p.listSep("]")
		if err != nil {
			return nil, err
		}
		if !more {
			return out, nil
		}
	}
}

func (p *parser) parseIntList() ([]int, error) {
	out := []int{}
	empty, err := p.openList()
	if err != nil || empty {
		return out, err
	}
	for {
		t, err := p.s.next()
		if err != nil {
			return nil, err
		}
		if t.kind != tokNumber {
			return nil, p.s.errorf(t.line, t.col, "expected number, got %s", t.describe())
		}
		v, err := strconv.Atoi(t.text)
		if err != nil || v < 0 {
			return nil, p.s.errorf(t.line, t.col, "invalid child index %s", t.text)
		}
		out = append(out, v)
		more, err := p.listSep("]")
		if err != nil {
			return nil, err
		}
		if !more {
			return out, nil
		}
	}
}
