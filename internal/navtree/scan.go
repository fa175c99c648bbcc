package navtree

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// SyntaxError reports malformed script input.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string // decoded value for strings
	line int
	col  int
	off  int // byte offset of the first character
	end  int // byte offset just past the token
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// scanner tokenises the subset of JavaScript the generator emits: var
// declarations whose values are arrays, objects, strings, numbers and null.
// Comments are treated as whitespace.
type scanner struct {
	src    []byte
	pos    int
	line   int
	col    int
	peeked *token
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) advance(n int) {
	for i := 0; i < n && s.pos < len(s.src); i++ {
		if s.src[s.pos] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
		s.pos++
	}
}

func (s *scanner) skipSpace() error {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			s.advance(1)
		case c == 0xEF && bytes.HasPrefix(s.src[s.pos:], utf8BOM):
			s.advance(3)
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.advance(1)
			}
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			line, col := s.line, s.col
			end := strings.Index(string(s.src[s.pos+2:]), "*/")
			if end < 0 {
				return s.errorf(line, col, "unterminated comment")
			}
			s.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) peek() (token, error) {
	if s.peeked != nil {
		return *s.peeked, nil
	}
	t, err := s.scan()
	if err != nil {
		return token{}, err
	}
	s.peeked = &t
	return t, nil
}

func (s *scanner) next() (token, error) {
	if s.peeked != nil {
		t := *s.peeked
		s.peeked = nil
		return t, nil
	}
	return s.scan()
}

func (s *scanner) scan() (token, error) {
	if err := s.skipSpace(); err != nil {
		return token{}, err
	}
	t := token{line: s.line, col: s.col, off: s.pos}
	if s.pos >= len(s.src) {
		t.kind = tokEOF
		t.end = s.pos
		return t, nil
	}

	c := s.src[s.pos]
	switch {
	case strings.IndexByte("[]{},:=;", c) >= 0:
		t.kind = tokPunct
		t.text = string(c)
		s.advance(1)
	case c == '"' || c == '\'':
		v, err := s.scanString(c)
		if err != nil {
			return token{}, err
		}
		t.kind = tokString
		t.text = v
	case c == '-' || (c >= '0' && c <= '9'):
		start := s.pos
		s.advance(1)
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			s.advance(1)
		}
		t.kind = tokNumber
		t.text = string(s.src[start:s.pos])
		if t.text == "-" {
			return token{}, s.errorf(t.line, t.col, "malformed number")
		}
	case isIdentStart(c):
		start := s.pos
		for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
			s.advance(1)
		}
		t.kind = tokIdent
		t.text = string(s.src[start:s.pos])
	default:
		r, _ := utf8.DecodeRune(s.src[s.pos:])
		return token{}, s.errorf(t.line, t.col, "unexpected character %q", r)
	}
	t.end = s.pos
	return t, nil
}

func (s *scanner) scanString(quote byte) (string, error) {
	line, col := s.line, s.col
	s.advance(1)
	var b strings.Builder
	for {
		if s.pos >= len(s.src) {
			return "", s.errorf(line, col, "unterminated string")
		}
		c := s.src[s.pos]
		switch {
		case c == quote:
			s.advance(1)
			return b.String(), nil
		case c == '\n':
			return "", s.errorf(line, col, "newline in string")
		case c == '\\':
			if s.pos+1 >= len(s.src) {
				return "", s.errorf(line, col, "unterminated string")
			}
			esc := s.src[s.pos+1]
			s.advance(2)
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '0':
				b.WriteByte(0)
			case 'x', 'u':
				width := 2
				if esc == 'u' {
					width = 4
				}
				if s.pos+width > len(s.src) {
					return "", s.errorf(s.line, s.col, "short \\%c escape", esc)
				}
				n, err := strconv.ParseUint(string(s.src[s.pos:s.pos+width]), 16, 32)
				if err != nil {
					return "", s.errorf(s.line, s.col, "malformed \\%c escape", esc)
				}
				s.advance(width)
				r := rune(n)
				if esc == 'u' && utf16.IsSurrogate(r) {
					r = s.lowSurrogate(r)
				}
				b.WriteRune(r)
			case '\n':
				// line continuation
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
			s.advance(1)
		}
	}
}

// lowSurrogate combines a high surrogate with an immediately following
// \uXXXX low surrogate. An unpaired surrogate decodes to U+FFFD.
func (s *scanner) lowSurrogate(hi rune) rune {
	if s.pos+6 > len(s.src) || s.src[s.pos] != '\\' || s.src[s.pos+1] != 'u' {
		return utf8.RuneError
	}
	n, err := strconv.ParseUint(string(s.src[s.pos+2:s.pos+6]), 16, 32)
	if err != nil {
		return utf8.RuneError
	}
	r := utf16.DecodeRune(hi, rune(n))
	if r == utf8.RuneError {
		return r
	}
	s.advance(6)
	return r
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// IsIdentifier reports whether name can be used as a script variable name.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return true
}
