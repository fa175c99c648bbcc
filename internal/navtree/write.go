package navtree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Indentation of top-level entries. Nested entries add two spaces per level.
const (
	treeIndent = 2
	partIndent = 4
)

// Write emits navtreedata.js in the generator's layout. Data produced by
// Parse from generator output is written back byte for byte. The index
// declaration is written unless the data records it was absent.
func Write(w io.Writer, d *Data) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(d.Preamble)
	fmt.Fprintf(bw, "var %s =\n", TreeVar)
	writeNodeList(bw, d.Tree, treeIndent)
	bw.WriteString(";")

	if !d.NoIndex || len(d.Index) > 0 {
		fmt.Fprintf(bw, "\n\nvar %s =\n[\n", IndexVar)
		for i, u := range d.Index {
			if i > 0 {
				bw.WriteString(",\n")
			}
			bw.WriteString(quote(u, '"'))
		}
		if len(d.Index) > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString("];")
	}

	for i, v := range d.Vars {
		if i == 0 {
			bw.WriteString("\n\n")
		} else {
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "var %s = %s;", v.Name, quote(v.Value, '\''))
	}
	bw.WriteString(d.Trailer)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write navtree data: %w", err)
	}
	return nil
}

// WritePart emits a children script.
func WritePart(w io.Writer, p *Part) error {
	if !IsIdentifier(p.Name) {
		return fmt.Errorf("invalid part name %q", p.Name)
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(p.Preamble)
	fmt.Fprintf(bw, "var %s =\n", p.Name)
	writeNodeList(bw, p.Nodes, partIndent)
	bw.WriteByte(';')
	bw.WriteString(trailerOr(p.Trailer, "\n"))
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write part %s: %w", p.Name, err)
	}
	return nil
}

// WriteSubIndex emits a navtreeindexN.js script.
func WriteSubIndex(w io.Writer, s *SubIndex) error {
	if !IsIdentifier(s.Name) {
		return fmt.Errorf("invalid sub-index name %q", s.Name)
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(s.Preamble)
	fmt.Fprintf(bw, "var %s =\n{\n", s.Name)
	for i, e := range s.Entries {
		if i > 0 {
			bw.WriteString(",\n")
		}
		bw.WriteString(quote(e.URL, '"'))
		bw.WriteString(":[")
		for j, v := range e.Path {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte(']')
	}
	if len(s.Entries) > 0 {
		bw.WriteByte('\n')
	}
	bw.WriteString("};")
	bw.WriteString(trailerOr(s.Trailer, "\n"))
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write sub-index %s: %w", s.Name, err)
	}
	return nil
}

// Format renders d to a string.
func Format(d *Data) string {
	var b strings.Builder
	Write(&b, d)
	return b.String()
}

func trailerOr(t, def string) string {
	if t == "" {
		return def
	}
	return t
}

func writeNodeList(w *bufio.Writer, nodes []*Node, indent int) {
	w.WriteString("[\n")
	for i, n := range nodes {
		if i > 0 {
			w.WriteString(",\n")
		}
		writeNode(w, n, indent)
	}
	if len(nodes) > 0 {
		w.WriteByte('\n')
	}
	w.WriteByte(']')
}

func writeNode(w *bufio.Writer, n *Node, indent int) {
	pad := strings.Repeat(" ", indent)
	w.WriteString(pad)
	w.WriteString("[ ")
	w.WriteString(quote(n.Title, '"'))
	w.WriteString(", ")
	if n.Href != nil {
		w.WriteString(quote(*n.Href, '"'))
	} else {
		w.WriteString("null")
	}
	w.WriteString(", ")

	switch {
	case n.Part != "":
		w.WriteString(quote(n.Part, '"'))
		w.WriteString(" ]")
	case n.Children == nil:
		w.WriteString("null ]")
	case len(n.Children) == 0:
		w.WriteString("[] ]")
	default:
		w.WriteString("[\n")
		for i, c := range n.Children {
			if i > 0 {
				w.WriteString(",\n")
			}
			writeNode(w, c, indent+2)
		}
		w.WriteByte('\n')
		w.WriteString(pad)
		w.WriteString("] ]")
	}
}

// quote renders s as a script string literal using q as the delimiter.
func quote(s string, q byte) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == q || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}
