package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSites(t *testing.T) {
	sites, err := ParseSites(" quanta=/srv/quanta/html , ,api=./docs/html")
	require.NoError(t, err)
	assert.Equal(t, []SiteConfig{
		{Name: "quanta", Dir: "/srv/quanta/html"},
		{Name: "api", Dir: "./docs/html"},
	}, sites)

	sites, err = ParseSites("")
	require.NoError(t, err)
	assert.Empty(t, sites)

	for _, bad := range []string{"quanta", "=dir", "name=", "a=b,c"} {
		_, err := ParseSites(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DOXNAV_SITES", "quanta=/srv/quanta")
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("RELOAD_INTERVAL", "bogus")

	cfg := Load()
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval)
	assert.Equal(t, ":memory:", cfg.IndexDBPath)
	assert.Equal(t, []SiteConfig{{Name: "quanta", Dir: "/srv/quanta"}}, cfg.Sites)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CHECK_CONCURRENCY", "3")
	t.Setenv("JOB_TTL", "5m")
	t.Setenv("RELOAD_INTERVAL", "0s")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3, cfg.CheckConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.JobTTL)
	assert.Zero(t, cfg.ReloadInterval, "zero disables reloading")
}

func TestLoadSitesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(file, []byte("sites:\n  - name: api\n    dir: /srv/api/html\n"), 0o644))

	cfg := Config{Sites: []SiteConfig{{Name: "quanta", Dir: "/srv/quanta"}}, SitesFile: file}
	require.NoError(t, cfg.LoadSitesFile())
	assert.Equal(t, []SiteConfig{
		{Name: "quanta", Dir: "/srv/quanta"},
		{Name: "api", Dir: "/srv/api/html"},
	}, cfg.Sites)

	cfg.SitesFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, cfg.LoadSitesFile())
}

func TestLoadSitesFile_INI(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sites.ini")
	src := "; served documentation\n[quanta]\ndir = /srv/quanta/html\n\n[api]\ndir = /srv/api/html\n"
	require.NoError(t, os.WriteFile(file, []byte(src), 0o644))

	cfg := Config{SitesFile: file}
	require.NoError(t, cfg.LoadSitesFile())
	assert.Equal(t, []SiteConfig{
		{Name: "quanta", Dir: "/srv/quanta/html"},
		{Name: "api", Dir: "/srv/api/html"},
	}, cfg.Sites)

	cfg = Config{SitesFile: filepath.Join(t.TempDir(), "missing.conf")}
	assert.Error(t, cfg.LoadSitesFile())
}

func TestValidate(t *testing.T) {
	t.Setenv("DOXNAV_SITES", "")
	valid := Config{APIKey: "k", Sites: []SiteConfig{{Name: "quanta", Dir: "/srv/quanta"}}}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no key", Config{Sites: valid.Sites}},
		{"no sites", Config{APIKey: "k"}},
		{"slash in name", Config{APIKey: "k", Sites: []SiteConfig{{Name: "a/b", Dir: "/x"}}}},
		{"duplicate", Config{APIKey: "k", Sites: []SiteConfig{{Name: "a", Dir: "/x"}, {Name: "a", Dir: "/y"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}

	t.Setenv("DOXNAV_SITES", "broken")
	assert.Error(t, valid.Validate())
}
