package pipeline

import (
	"slices"
	"sync"
	"time"
)

// Outcome is the result of one finished link check job.
type Outcome struct {
	Site     string
	Status   JobStatus
	Links    int
	Broken   int
	Duration time.Duration
	at       time.Time
}

// StatsSnapshot aggregates the outcomes recorded within the window.
type StatsSnapshot struct {
	Count        int                    `json:"count"`
	ByStatus     map[JobStatus]int      `json:"by_status"`
	LinksChecked int                    `json:"links_checked"`
	BrokenLinks  int                    `json:"broken_links"`
	BrokenRatio  float64                `json:"broken_ratio"`
	MinMs        int64                  `json:"min_ms"`
	MaxMs        int64                  `json:"max_ms"`
	AvgMs        float64                `json:"avg_ms"`
	P50Ms        float64                `json:"p50_ms"`
	P95Ms        float64                `json:"p95_ms"`
	P99Ms        float64                `json:"p99_ms"`
	LastBySite   map[string]SiteLastJob `json:"last_by_site"`
}

// SiteLastJob is the most recent outcome for one site.
type SiteLastJob struct {
	Status   JobStatus `json:"status"`
	Links    int       `json:"links"`
	Broken   int       `json:"broken"`
	Finished time.Time `json:"finished"`
}

// CheckStats keeps finished check outcomes for a rolling window.
type CheckStats struct {
	mu       sync.Mutex
	outcomes []Outcome
	window   time.Duration
}

func NewCheckStats(window time.Duration) *CheckStats {
	if window <= 0 {
		window = time.Hour
	}
	return &CheckStats{window: window}
}

// Record adds a finished job. Negative durations count as zero.
func (s *CheckStats) Record(o Outcome) {
	if o.Duration < 0 {
		o.Duration = 0
	}
	o.at = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(o.at)
	s.outcomes = append(s.outcomes, o)
}

func (s *CheckStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	snap := StatsSnapshot{
		Count:      len(s.outcomes),
		ByStatus:   map[JobStatus]int{},
		LastBySite: map[string]SiteLastJob{},
	}
	if len(s.outcomes) == 0 {
		return snap
	}

	ms := make([]int64, len(s.outcomes))
	var sum int64
	for i, o := range s.outcomes {
		ms[i] = o.Duration.Milliseconds()
		sum += ms[i]
		snap.ByStatus[o.Status]++
		snap.LinksChecked += o.Links
		snap.BrokenLinks += o.Broken
		// outcomes are in recording order, so later ones win
		snap.LastBySite[o.Site] = SiteLastJob{Status: o.Status, Links: o.Links, Broken: o.Broken, Finished: o.at}
	}
	if snap.LinksChecked > 0 {
		snap.BrokenRatio = float64(snap.BrokenLinks) / float64(snap.LinksChecked)
	}

	slices.Sort(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	return snap
}

func (s *CheckStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.outcomes) && s.outcomes[i].at.Before(cutoff) {
		i++
	}
	s.outcomes = slices.Delete(s.outcomes, 0, i)
}

// percentile interpolates linearly between closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
