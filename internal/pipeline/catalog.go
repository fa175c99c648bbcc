package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgallion1/doxnav/internal/config"
	"github.com/dgallion1/doxnav/internal/site"
	"github.com/dgallion1/doxnav/internal/store"
)

// SiteStatus reports the state of one configured site.
type SiteStatus struct {
	Name   string        `json:"name"`
	Dir    string        `json:"dir"`
	Loaded bool          `json:"loaded"`
	Error  string        `json:"error,omitempty"`
	Site   *site.Summary `json:"site,omitempty"`
}

// Catalog keeps the configured sites loaded. A site that fails to reload
// keeps serving its previous version.
type Catalog struct {
	configs []config.SiteConfig
	store   *store.Store
	log     *slog.Logger
	workers int

	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff

	mu    sync.RWMutex
	sites map[string]*site.Site
	errs  map[string]string
}

// NewCatalog creates an empty catalog. st may be nil to skip search
// indexing.
func NewCatalog(configs []config.SiteConfig, st *store.Store, workers int, log *slog.Logger) *Catalog {
	if workers <= 0 {
		workers = 1
	}
	return &Catalog{
		configs:    configs,
		store:      st,
		log:        log,
		workers:    workers,
		newBackOff: NewLoadBackOff,
		sites:      make(map[string]*site.Site),
		errs:       make(map[string]string),
	}
}

// LoadAll loads every configured site with bounded concurrency. It returns
// an error only when no site could be loaded.
func (c *Catalog) LoadAll(ctx context.Context) error {
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for _, sc := range c.configs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sc config.SiteConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			c.load(ctx, sc)
		}(sc)
	}
	wg.Wait()

	if len(c.configs) > 0 && len(c.Names()) == 0 {
		return fmt.Errorf("none of %d configured sites could be loaded", len(c.configs))
	}
	return nil
}

// Refresh reloads every site whose navtreedata.js changed since it was
// loaded, and retries sites that never loaded. A site whose navtreedata.js
// is gone is dropped along with its search entries.
func (c *Catalog) Refresh(ctx context.Context) {
	for _, sc := range c.configs {
		if ctx.Err() != nil {
			return
		}
		fp, err := site.Fingerprint(sc.Dir)
		if errors.Is(err, fs.ErrNotExist) {
			c.unload(ctx, sc.Name, err)
			continue
		}
		if err != nil {
			c.setError(sc.Name, err)
			continue
		}
		if cur, ok := c.Get(sc.Name); ok && cur.Fingerprint == fp {
			continue
		}
		c.load(ctx, sc)
	}
}

// Run calls Refresh every interval until ctx is done.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

func (c *Catalog) load(ctx context.Context, sc config.SiteConfig) {
	log := c.log.With("site", sc.Name, "dir", sc.Dir)

	var s *site.Site
	var err error
	b := c.newBackOff()
	for attempt := range MaxRetries {
		s, err = site.Load(sc.Name, sc.Dir)
		if err == nil || !IsRetryable(err) {
			break
		}
		log.Warn("retryable load error", "attempt", attempt, "error", err)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			c.setError(sc.Name, ctx.Err())
			return
		}
	}
	if err != nil {
		log.Error("site load failed", "error", err)
		c.setError(sc.Name, err)
		return
	}

	if c.store != nil {
		entries := store.Entries(s.Expand())
		if err := c.store.Replace(ctx, sc.Name, entries); err != nil {
			log.Warn("search index update failed", "error", err)
		}
	}

	c.mu.Lock()
	c.sites[sc.Name] = s
	delete(c.errs, sc.Name)
	c.mu.Unlock()

	log.Info("site loaded",
		"fingerprint", s.Fingerprint[:12],
		"parts", len(s.Parts),
		"index_entries", len(s.Data.Index),
		"missing", len(s.Missing),
	)
}

func (c *Catalog) unload(ctx context.Context, name string, cause error) {
	c.mu.Lock()
	_, loaded := c.sites[name]
	delete(c.sites, name)
	c.errs[name] = cause.Error()
	c.mu.Unlock()
	if !loaded {
		return
	}

	if c.store != nil {
		if err := c.store.Remove(ctx, name); err != nil {
			c.log.Warn("search index cleanup failed", "site", name, "error", err)
		}
	}
	c.log.Info("site dropped", "site", name, "error", cause)
}

func (c *Catalog) setError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[name] = err.Error()
}

// Get returns the current version of a site.
func (c *Catalog) Get(name string) (*site.Site, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sites[name]
	return s, ok
}

// Names returns the loaded site names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.sites))
	for name := range c.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports every configured site in configuration order.
func (c *Catalog) Status() []SiteStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SiteStatus, 0, len(c.configs))
	for _, sc := range c.configs {
		st := SiteStatus{Name: sc.Name, Dir: sc.Dir, Error: c.errs[sc.Name]}
		if s, ok := c.sites[sc.Name]; ok {
			sum := s.Summary()
			st.Loaded = true
			st.Site = &sum
		}
		out = append(out, st)
	}
	return out
}

// Store returns the search index, which may be nil.
func (c *Catalog) Store() *store.Store {
	return c.store
}
