package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dgallion1/doxnav/internal/api"
	"github.com/dgallion1/doxnav/internal/config"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/dgallion1/doxnav/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-key"
	fixtureDir = "../site/testdata/quanta"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:           testKey,
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

	c := NewClient(ts.URL+"/", testKey)
	t.Cleanup(c.Close)
	return c
}

func TestSites(t *testing.T) {
	c := newTestClient(t)
	sites, err := c.Sites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "quanta", sites[0].Name)
	assert.True(t, sites[0].Loaded)
	require.NotNil(t, sites[0].Site)
	assert.Equal(t, "Quanta", sites[0].Site.Title)
}

func TestResolve(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	bc, err := c.Resolve(ctx, "quanta", "group__core.html#ga1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Quanta", "Modules", "Core", "exp"}, bc.Titles)
	assert.Equal(t, 1, bc.Chunk)

	_, err = c.Resolve(ctx, "quanta", "zzz.html")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Resolve(ctx, "nope", "index.html")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t)
	entries, err := c.Search(context.Background(), "quanta", "class", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Classes", entries[0].Title)
	assert.Equal(t, "Quanta > Classes", entries[0].Breadcrumb)
}

func TestNavtree_Script(t *testing.T) {
	c := newTestClient(t)
	got, err := c.Navtree(context.Background(), "quanta", "js", false)
	require.NoError(t, err)
	want, err := os.ReadFile(fixtureDir + "/navtreedata.js")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = c.Navtree(context.Background(), "quanta", "xml", false)
	assert.ErrorContains(t, err, "status 400")
}

func TestCheck_Wait(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ref, err := c.Check(ctx, "quanta")
	require.NoError(t, err)
	assert.Equal(t, "quanta", ref.Site)
	assert.Equal(t, pipeline.StatusQueued, ref.Status)

	snap, err := c.WaitCheck(ctx, ref.JobID, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusPartial, snap.Status)
	assert.Equal(t, 10, snap.Progress.TotalLinks)
	require.Len(t, snap.Broken, 1)
	assert.Equal(t, "group__prob.html", snap.Broken[0].URL)

	_, err = c.CheckStatus(ctx, "missing-job")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaitCheck_NonPositiveInterval(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/checks/job-1/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"job_id":"job-1","site":"quanta","status":"completed"}`)
	}))
	t.Cleanup(ts.Close)
	c := NewClient(ts.URL, testKey)
	t.Cleanup(c.Close)

	for _, interval := range []time.Duration{0, -time.Second} {
		snap, err := c.WaitCheck(context.Background(), "job-1", interval)
		require.NoError(t, err)
		assert.Equal(t, pipeline.StatusCompleted, snap.Status)
	}
}

func TestValidate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	data, err := os.ReadFile(fixtureDir + "/navtreedata.js")
	require.NoError(t, err)
	v, err := c.Validate(ctx, "navtreedata.js", data)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	require.NotNil(t, v.RoundTrip)
	assert.True(t, *v.RoundTrip)
	assert.Equal(t, []string{"modules", "annotated_dup"}, v.Parts)

	v, err = c.Validate(ctx, "navtreedata.js", []byte("var NAVTREE = [ oops"))
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Error)
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t)
	c.apiKey = "wrong"
	_, err := c.Sites(context.Background())
	assert.ErrorContains(t, err, "status 401")
}
