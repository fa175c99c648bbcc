package navtree

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/navtreedata.js")
	require.NoError(t, err)
	return b
}

func TestParse_Fixture(t *testing.T) {
	d, err := Parse(bytes.NewReader(readFixture(t)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(d.Preamble, "/*\n @licstart"))
	require.Len(t, d.Tree, 1)

	root := d.Root()
	assert.Equal(t, "Quanta Math Library", root.Title)
	href, ok := root.Link()
	assert.True(t, ok)
	assert.Equal(t, "index.html", href)
	require.Len(t, root.Children, 4)

	modules := root.Children[0]
	assert.Equal(t, "modules", modules.Part)
	assert.Nil(t, modules.Children)

	namespaces := root.Children[1]
	assert.Nil(t, namespaces.Href)
	require.Len(t, namespaces.Children, 2)
	assert.Len(t, namespaces.Children[1].Children, 2)

	quoted := root.Children[2].Children[2]
	assert.Equal(t, `The "var" Type`, quoted.Title)
	assert.Nil(t, quoted.Children)
	assert.Empty(t, quoted.Part)

	ext := root.Children[3]
	assert.True(t, ext.IsExternal())
	assert.Equal(t, "https://example.org/docs/", ext.URL())

	assert.Equal(t, []string{
		".html",
		"annotated.html",
		"d1/d2a/classquanta_1_1var.html#a0f3c",
		"namespacemembers_func.html",
	}, d.Index)
	assert.Equal(t, "click to disable panel synchronisation", d.SyncOnMsg())
	assert.Equal(t, "click to enable panel synchronisation", d.SyncOffMsg())
	assert.Equal(t, "", d.Trailer)
}

func TestParseWrite_RoundTripIsByteIdentical(t *testing.T) {
	src := readFixture(t)
	d, err := Parse(bytes.NewReader(src))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Write(&out, d))
	assert.Equal(t, string(src), out.String())
}

func TestParseWrite_TrailingNewlinePreserved(t *testing.T) {
	src := string(readFixture(t)) + "\n"
	d, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "\n", d.Trailer)
	assert.Equal(t, src, Format(d))
}

func TestWrite_BuiltData(t *testing.T) {
	d := &Data{
		Tree: []*Node{
			node("Docs", "index.html",
				node("Guide", "guide.html"),
				&Node{Title: "Files", Part: "files"},
			),
		},
		Index: []string{"guide.html"},
	}
	d.SetVar(SyncOnVar, "on")
	d.SetVar(SyncOffVar, "it's off")

	want := "var NAVTREE =\n[\n" +
		"  [ \"Docs\", \"index.html\", [\n" +
		"    [ \"Guide\", \"guide.html\", null ],\n" +
		"    [ \"Files\", null, \"files\" ]\n" +
		"  ] ]\n" +
		"];\n\n" +
		"var NAVTREEINDEX =\n[\n\"guide.html\"\n];\n\n" +
		"var SYNCONMSG = 'on';\n" +
		"var SYNCOFFMSG = 'it\\'s off';"
	assert.Equal(t, want, Format(d))

	back, err := Parse(strings.NewReader(want))
	require.NoError(t, err)
	assert.Equal(t, "it's off", back.SyncOffMsg())
	assert.Equal(t, want, Format(back))
}

func TestParse_Lenient(t *testing.T) {
	src := `// generated
var NAVTREE = [ [ 'Root', 'index.html', [ [ "A", null, null, ], ], ], ];
var NAVTREEINDEX = [ "a.html", ];
var EXTRA = "x\x41";`
	d, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "// generated\n", d.Preamble)
	require.Len(t, d.Tree[0].Children, 1)
	assert.Equal(t, "A", d.Tree[0].Children[0].Title)
	assert.Equal(t, []string{"a.html"}, d.Index)
	v, ok := d.Var("EXTRA")
	assert.True(t, ok)
	assert.Equal(t, "xA", v)
}

func TestParseWrite_WithoutIndex(t *testing.T) {
	src := "var NAVTREE =\n[\n  [ \"Root\", \"index.html\", null ]\n];\n\n" +
		"var SYNCONMSG = 'on';\nvar SYNCOFFMSG = 'off';\n"
	d, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.True(t, d.NoIndex)
	assert.Nil(t, d.Index)
	assert.Equal(t, src, Format(d))

	d.Index = []string{"index.html"}
	assert.Contains(t, Format(d), "var NAVTREEINDEX =\n[\n\"index.html\"\n];")

	withIndex, err := Parse(strings.NewReader("var NAVTREE = [];\nvar NAVTREEINDEX = [];"))
	require.NoError(t, err)
	assert.False(t, withIndex.NoIndex)
	assert.Contains(t, Format(withIndex), "var NAVTREEINDEX =\n[\n];")
}

func TestParse_UnicodeEscapes(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"bmp", `\u00e9t\u00e9`, "été"},
		{"surrogate pair", `\ud83d\ude00 smile`, "\U0001F600 smile"},
		{"lone high", `\ud83dx`, "\uFFFDx"},
		{"lone low", `\ude00`, "\uFFFD"},
		{"high then bmp", `\ud83d\u0041`, "\uFFFDA"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := `var NAVTREE = [ [ "` + tc.title + `", null, null ] ];`
			d, err := Parse(strings.NewReader(src))
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Tree[0].Title)
		})
	}
}

func TestParse_EmptyChildrenKept(t *testing.T) {
	d, err := Parse(strings.NewReader(`var NAVTREE = [ [ "Root", null, [] ] ];`))
	require.NoError(t, err)
	require.NotNil(t, d.Tree[0].Children)
	assert.Empty(t, d.Tree[0].Children)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"empty", "", 1, "missing var NAVTREE"},
		{"no tree", "var NAVTREEINDEX = [];", 1, "missing var NAVTREE"},
		{"not var", "let NAVTREE = [];", 1, "expected var declaration"},
		{"missing semicolon", "var NAVTREE = []\nvar X = 'a';", 2, `expected ";"`},
		{"title not string", "var NAVTREE = [ [ null, null, null ] ];", 1, "expected title string"},
		{"bad href", "var NAVTREE = [ [ \"a\", 3, null ] ];", 1, "expected href string or null"},
		{"four elements", "var NAVTREE = [ [ \"a\", null, null, null ] ];", 1, "more than three elements"},
		{"unterminated string", "var NAVTREE = [ [ \"a, null, null ] ];", 1, "unterminated string"},
		{"unterminated comment", "/* licence\nvar NAVTREE = [];", 1, "unterminated comment"},
		{"duplicate", "var NAVTREE = [];\nvar NAVTREE = [];", 2, "duplicate declaration"},
		{"object var", "var NAVTREE = [];\nvar X = [];", 2, "unsupported value for X"},
		{"stray char", "var NAVTREE = [ @ ];", 1, "unexpected character"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.src))
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
			assert.Equal(t, tc.line, se.Line)
			assert.Contains(t, se.Msg, tc.msg)
		})
	}
}

func TestParsePart(t *testing.T) {
	src := "var modules =\n[\n" +
		"    [ \"Core\", \"group__core.html\", \"group__core\" ],\n" +
		"    [ \"Probability\", \"group__prob.html\", [\n" +
		"      [ \"Densities\", \"group__dens.html\", null ]\n" +
		"    ] ]\n" +
		"];\n"
	p, err := ParsePart(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "modules", p.Name)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "group__core", p.Nodes[0].Part)
	assert.Equal(t, "Densities", p.Nodes[1].Children[0].Title)

	var out bytes.Buffer
	require.NoError(t, WritePart(&out, p))
	assert.Equal(t, src, out.String())
}

func TestParsePart_RejectsExtraDeclarations(t *testing.T) {
	_, err := ParsePart(strings.NewReader("var a = [];\nvar b = [];"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after declaration")
}

func TestParseSubIndex(t *testing.T) {
	src := "var NAVTREEINDEX0 =\n{\n" +
		"\"annotated.html\":[0,2,0],\n" +
		"\"classes.html\":[0,2,1]\n" +
		"};\n"
	s, err := ParseSubIndex(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "NAVTREEINDEX0", s.Name)
	require.Len(t, s.Entries, 2)
	path, ok := s.Lookup("classes.html")
	assert.True(t, ok)
	assert.Equal(t, []int{0, 2, 1}, path)
	_, ok = s.Lookup("missing.html")
	assert.False(t, ok)

	var out bytes.Buffer
	require.NoError(t, WriteSubIndex(&out, s))
	assert.Equal(t, src, out.String())
}

func TestParseSubIndex_NegativeIndex(t *testing.T) {
	_, err := ParseSubIndex(strings.NewReader(`var NAVTREEINDEX0 = { "a.html":[0,-1] };`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid child index")
}
