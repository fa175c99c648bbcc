package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/doxnav/internal/api"
	"github.com/dgallion1/doxnav/internal/config"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/dgallion1/doxnav/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../internal/site/testdata/quanta"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_Site(t *testing.T) {
	out, err := run(t, "validate", fixtureDir)
	require.NoError(t, err)
	assert.Equal(t, fixtureDir+": ok\n", out)
}

func TestValidate_ReportsProblems(t *testing.T) {
	file := filepath.Join(t.TempDir(), "navtreedata.js")
	src := "var NAVTREE =\n[\n  [ \"Home\", \"index html\", [] ]\n];\n\nvar NAVTREEINDEX =\n[\n\"index.html\"\n];"
	require.NoError(t, os.WriteFile(file, []byte(src), 0o644))

	out, err := run(t, "validate", file)
	assert.ErrorIs(t, err, errProblems)
	assert.Contains(t, out, "NAVTREE[0]")
	assert.Contains(t, out, "children list is empty")
	assert.Contains(t, out, "SYNCONMSG")
}

func TestFmt_CheckFixture(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(fixtureDir, "*.js"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	out, err := run(t, append([]string{"fmt", "--check"}, files...)...)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFmt_Write(t *testing.T) {
	file := filepath.Join(t.TempDir(), "modules.js")
	require.NoError(t, os.WriteFile(file, []byte(`var modules = [["Core","group__core.html",null],];`), 0o644))

	out, err := run(t, "fmt", "--check", file)
	assert.ErrorIs(t, err, errProblems)
	assert.Equal(t, file+"\n", out)

	_, err = run(t, "fmt", "-w", file)
	require.NoError(t, err)
	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "var modules =\n[\n    [ \"Core\", \"group__core.html\", null ]\n];\n", string(got))
}

func TestExport_YAML(t *testing.T) {
	out, err := run(t, "export", "--format", "yaml", fixtureDir)
	require.NoError(t, err)
	assert.Contains(t, out, "title: exp")
	assert.NotContains(t, out, "part: modules", "directories are expanded by default")

	out, err = run(t, "export", "--format", "yaml", "--expand=false", fixtureDir)
	require.NoError(t, err)
	assert.Contains(t, out, "part: modules")
}

func TestExportImport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "nav.md")
	_, err := run(t, "export", "--format", "markdown", "--expand=false", "-o", md, filepath.Join(fixtureDir, "navtreedata.js"))
	require.NoError(t, err)

	out := filepath.Join(dir, "navtreedata.js")
	_, err = run(t, "import", "-o", out, md)
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join(fixtureDir, "navtreedata.js"))
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)

	// markdown keeps the tree and labels but not the anchor index
	wantTree, _, _ := strings.Cut(string(want), "var NAVTREEINDEX")
	gotTree, _, _ := strings.Cut(string(got), "var NAVTREEINDEX")
	assert.Equal(t, wantTree, gotTree)
}

func TestTree(t *testing.T) {
	out, err := run(t, "tree", "--depth", "1", fixtureDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Quanta (index.html)")
	assert.Contains(t, out, "Modules (modules.html)")
	assert.Contains(t, out, "(External Link) Site <https://example.org/>")
	assert.NotContains(t, out, "Core")

	out, err = run(t, "tree", fixtureDir)
	require.NoError(t, err)
	assert.Contains(t, out, "exp (group__core.html#ga1)")
}

func TestTree_UnexpandedShowsParts(t *testing.T) {
	out, err := run(t, "tree", "--expand=false", fixtureDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Modules -> modules.js")
}

func TestLocate(t *testing.T) {
	out, err := run(t, "locate", fixtureDir, "group__core.html#ga1")
	require.NoError(t, err)
	assert.Contains(t, out, "script: navtreeindex1.js")
	assert.Contains(t, out, "      exp (group__core.html#ga1)\n")

	_, err = run(t, "locate", filepath.Join(fixtureDir, "navtreedata.js"), "index.html")
	assert.ErrorContains(t, err, "documentation directory is required")
}

func TestCheck(t *testing.T) {
	out, err := run(t, "check", fixtureDir)
	assert.ErrorIs(t, err, errProblems)
	assert.Contains(t, out, "Quanta > Modules > Probability: group__prob.html: page not found")
	assert.Contains(t, out, "10 links checked, 1 broken")
}

func TestQuery(t *testing.T) {
	out, err := run(t, "query", fixtureDir, "$.navtree[0].children[0].children[0].children[0].href")
	require.NoError(t, err)
	assert.Equal(t, "\"group__core.html#ga1\"\n", out)

	_, err = run(t, "query", fixtureDir, "$.navtree[?(")
	assert.Error(t, err)
}

func startServer(t *testing.T) string {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:           "k",
		Sites:            []config.SiteConfig{{Name: "quanta", Dir: fixtureDir}},
		WorkerCount:      1,
		MaxQueueSize:     4,
		CheckConcurrency: 2,
		JobTTL:           time.Hour,
		MaxUploadBytes:   1 << 20,
	}
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cat := pipeline.NewCatalog(cfg.Sites, st, 1, log)
	require.NoError(t, cat.LoadAll(context.Background()))
	orch := pipeline.NewOrchestrator(cfg, cat, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	ts := httptest.NewServer(api.NewServer(orch, log, cfg))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRemote(t *testing.T) {
	server := startServer(t)
	flags := []string{"--server", server, "--api-key", "k"}

	out, err := run(t, append([]string{"remote", "sites"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "quanta\tQuanta\t11 nodes\t")

	out, err = run(t, append([]string{"remote", "resolve", "quanta", "classes.html"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "Quanta > Classes > Class Index\n", out)

	out, err = run(t, append([]string{"remote", "search", "quanta", "exp"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "Quanta > Modules > Core > exp\tgroup__core.html#ga1\n", out)

	out, err = run(t, append([]string{"remote", "check", "quanta", "--wait", "--poll", "10ms"}, flags...)...)
	assert.ErrorIs(t, err, errProblems)
	assert.Contains(t, out, "group__prob.html: page not found")
	assert.Contains(t, out, "partial: 10 links checked, 1 broken")

	for _, poll := range []string{"0s", "-1s"} {
		_, err = run(t, append([]string{"remote", "check", "quanta", "--wait", "--poll=" + poll}, flags...)...)
		assert.ErrorContains(t, err, "--poll must be positive")
	}
}
