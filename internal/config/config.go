package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// SiteConfig names one generated documentation directory.
type SiteConfig struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

type Config struct {
	Port string

	// Auth
	APIKey string

	// Sites to serve. DOXNAV_SITES entries come first, then the sites file.
	Sites     []SiteConfig
	SitesFile string

	// Catalog
	ReloadInterval time.Duration
	LoadWorkers    int

	// Link check jobs
	WorkerCount      int
	MaxQueueSize     int
	CheckConcurrency int
	JobTTL           time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Search index; ":memory:" keeps it in process
	IndexDBPath string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOXNAV_API_KEY"),

		SitesFile: os.Getenv("DOXNAV_SITES_FILE"),

		ReloadInterval: envDuration("RELOAD_INTERVAL", 30*time.Second),
		LoadWorkers:    envInt("LOAD_WORKERS", 4),

		WorkerCount:      envInt("WORKER_COUNT", 2),
		MaxQueueSize:     envInt("MAX_QUEUE_SIZE", 100),
		CheckConcurrency: envInt("CHECK_CONCURRENCY", 8),
		JobTTL:           envDuration("JOB_TTL", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		IndexDBPath: envOr("INDEX_DB_PATH", ":memory:"),
	}
	cfg.Sites, _ = ParseSites(os.Getenv("DOXNAV_SITES"))

	if cfg.ReloadInterval < 0 {
		cfg.ReloadInterval = 30 * time.Second
	}
	if cfg.LoadWorkers <= 0 {
		cfg.LoadWorkers = 4
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.CheckConcurrency <= 0 {
		cfg.CheckConcurrency = 8
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}

	return cfg
}

// LoadSitesFile appends the sites listed in SitesFile. YAML files hold a
// list:
//
//	sites:
//	  - name: quanta
//	    dir: /srv/docs/quanta/html
//
// and .ini/.conf files one section per site:
//
//	[quanta]
//	dir = /srv/docs/quanta/html
func (c *Config) LoadSitesFile() error {
	if c.SitesFile == "" {
		return nil
	}
	var (
		sites []SiteConfig
		err   error
	)
	switch strings.ToLower(filepath.Ext(c.SitesFile)) {
	case ".ini", ".conf":
		sites, err = loadSitesINI(c.SitesFile)
	default:
		sites, err = loadSitesYAML(c.SitesFile)
	}
	if err != nil {
		return err
	}
	c.Sites = append(c.Sites, sites...)
	return nil
}

func loadSitesYAML(path string) ([]SiteConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	var doc struct {
		Sites []SiteConfig `yaml:"sites"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse sites file %s: %w", path, err)
	}
	return doc.Sites, nil
}

func loadSitesINI(path string) ([]SiteConfig, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse sites file %s: %w", path, err)
	}
	var sites []SiteConfig
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		sites = append(sites, SiteConfig{Name: sec.Name(), Dir: sec.Key("dir").String()})
	}
	return sites, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOXNAV_API_KEY is required")
	}
	if _, err := ParseSites(os.Getenv("DOXNAV_SITES")); err != nil {
		return err
	}
	if len(c.Sites) == 0 {
		return fmt.Errorf("no sites configured: set DOXNAV_SITES or DOXNAV_SITES_FILE")
	}
	seen := make(map[string]bool)
	for _, s := range c.Sites {
		if s.Name == "" || s.Dir == "" {
			return fmt.Errorf("site %q: name and dir are required", s.Name)
		}
		if strings.ContainsAny(s.Name, "/?#") {
			return fmt.Errorf("site %q: name must not contain / ? or #", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("site %q configured twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// ParseSites parses "name=dir,name2=dir2". Blank entries are skipped.
func ParseSites(v string) ([]SiteConfig, error) {
	var sites []SiteConfig
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, dir, ok := strings.Cut(item, "=")
		name, dir = strings.TrimSpace(name), strings.TrimSpace(dir)
		if !ok || name == "" || dir == "" {
			return nil, fmt.Errorf("invalid site entry %q: want name=dir", item)
		}
		sites = append(sites, SiteConfig{Name: name, Dir: dir})
	}
	return sites, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
