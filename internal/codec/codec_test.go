package codec

import (
	"bytes"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/dgallion1/doxnav/internal/navtree"
)

func sampleData() *navtree.Data {
	d := &navtree.Data{
		Tree: []*navtree.Node{
			node("Quanta Math Library", "index.html",
				&navtree.Node{Title: "Modules", Href: strPtr("modules.html"), Part: "modules"},
				node("Namespaces", "",
					node("Namespace List", "namespaces.html"),
				),
				node("var_value<T>", "d1/d2a/classquanta_1_1var.html#a0f3c"),
				node("(External Link) Site", "^https://example.org/docs/"),
			),
		},
		Index: []string{".html", "namespaces.html"},
	}
	d.EnsureSyncVars()
	return d
}

func strPtr(s string) *string { return &s }

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want Codec
	}{
		{"navtreedata.js", Script{}},
		{"nav.JSON", JSON{}},
		{"nav.yml", YAML{}},
		{"nav.yaml", YAML{}},
		{"SUMMARY.md", Markdown{}},
	}
	for _, tc := range tests {
		got, err := ForFile(tc.name)
		if err != nil {
			t.Fatalf("ForFile(%q): unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("ForFile(%q) = %T, want %T", tc.name, got, tc.want)
		}
	}

	if _, err := ForFile("nav.pdf"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestForFormat(t *testing.T) {
	for _, name := range Formats {
		if _, err := ForFormat(name); err != nil {
			t.Errorf("ForFormat(%q): unexpected error: %v", name, err)
		}
	}
	if _, err := ForFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	d := sampleData()
	var buf bytes.Buffer
	if err := (JSON{}).Encode(&buf, d); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"Modules",`) {
		t.Errorf("expected tuple-shaped entries, got:\n%s", buf.String())
	}

	back, err := (JSON{}).Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(d, back) {
		t.Errorf("round trip mismatch:\nwant %s\ngot  %s", navtree.Format(d), navtree.Format(back))
	}
}

func TestJSON_RejectsUnknownFields(t *testing.T) {
	_, err := (JSON{}).Decode(strings.NewReader(`{"navtree": [], "pages": []}`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	d := sampleData()
	var buf bytes.Buffer
	if err := (YAML{}).Encode(&buf, d); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), "part: modules") {
		t.Errorf("expected part key in yaml, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "href: null") {
		t.Errorf("expected null href in yaml, got:\n%s", buf.String())
	}

	back, err := (YAML{}).Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(d, back) {
		t.Errorf("round trip mismatch:\nwant %s\ngot  %s", navtree.Format(d), navtree.Format(back))
	}
}

func TestScript_ViaCodec(t *testing.T) {
	d := sampleData()
	var buf bytes.Buffer
	if err := (Script{}).Encode(&buf, d); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := (Script{}).Decode(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := navtree.Format(back); got != buf.String() {
		t.Errorf("script round trip mismatch:\nwant %s\ngot  %s", buf.String(), got)
	}
}

func TestMarkdown_Encode(t *testing.T) {
	var buf bytes.Buffer
	if err := (Markdown{}).Encode(&buf, sampleData()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "- [Quanta Math Library](index.html)\n" +
		"  - [Modules](modules.html) <!-- part: modules -->\n" +
		"  - Namespaces\n" +
		"    - [Namespace List](namespaces.html)\n" +
		"  - [var\\_value\\<T\\>](d1/d2a/classquanta_1_1var.html#a0f3c)\n" +
		"  - [(External Link) Site](https://example.org/docs/)\n"
	if buf.String() != want {
		t.Errorf("unexpected markdown:\nwant:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestMarkdown_RoundTripsTree(t *testing.T) {
	d := sampleData()
	var buf bytes.Buffer
	if err := (Markdown{}).Encode(&buf, d); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := (Markdown{}).Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(d.Tree, back.Tree) {
		t.Errorf("tree mismatch:\nwant %s\ngot  %s", navtree.Format(d), navtree.Format(back))
	}
	if back.SyncOnMsg() != navtree.DefaultSyncOnMsg {
		t.Errorf("expected default sync label, got %q", back.SyncOnMsg())
	}
}

func TestMarkdown_DecodeIgnoresSurroundingText(t *testing.T) {
	input := `# Handbook

Some introduction.

- [Start](start.html)
  - Topics
    - [Install](install.html)
- [FAQ](faq.html)

Trailing paragraph.
`
	d, err := (Markdown{}).Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Tree) != 2 {
		t.Fatalf("expected 2 top-level entries, got %d", len(d.Tree))
	}
	topics := d.Tree[0].Children[0]
	if topics.Title != "Topics" || topics.Href != nil {
		t.Errorf("expected unlinked Topics entry, got %q href=%v", topics.Title, topics.Href)
	}
	if got := topics.Children[0].URL(); got != "install.html" {
		t.Errorf("expected install.html, got %q", got)
	}
	if d.Tree[1].Children != nil {
		t.Errorf("expected FAQ to be a leaf")
	}
}

func TestMarkdown_NoList(t *testing.T) {
	_, err := (Markdown{}).Decode(strings.NewReader("# Title\n\nJust text.\n"))
	if err != ErrNoOutline {
		t.Errorf("expected ErrNoOutline, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	d := sampleData()

	got, err := Query(d, "$.navtree[0].children[*].title")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	titles := make([]string, 0, len(got))
	for _, v := range got {
		titles = append(titles, v.(string))
	}
	sort.Strings(titles)
	want := []string{"(External Link) Site", "Modules", "Namespaces", "var_value<T>"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("expected %v, got %v", want, titles)
	}

	got, err = Query(d, "$.vars.SYNCOFFMSG")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0] != navtree.DefaultSyncOffMsg {
		t.Errorf("expected sync label, got %v", got)
	}

	got, err = Query(d, "$.navtree[0].children[0].part")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0] != "modules" {
		t.Errorf("expected part name, got %v", got)
	}
}

func TestQuery_InvalidExpression(t *testing.T) {
	if _, err := Query(sampleData(), "$.navtree[?("); err == nil {
		t.Error("expected error for malformed jsonpath")
	}
}

// node builds a test node; an empty href means null.
func node(title, href string, children ...*navtree.Node) *navtree.Node {
	n := &navtree.Node{Title: title, Children: children}
	if href != "" {
		n.Href = &href
	}
	return n
}
