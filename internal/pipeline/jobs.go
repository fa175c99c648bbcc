package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/doxnav/internal/linkcheck"
	"github.com/google/uuid"
)

// JobStatus represents the state of a link check job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusChecking  JobStatus = "checking"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Job tracks one link check over a loaded site.
type Job struct {
	mu sync.Mutex

	ID   string `json:"job_id"`
	Site string `json:"site"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	// Fingerprint of the site version that was checked.
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	broken []linkcheck.Result
	errors []string
}

// Progress tracks checking progress.
type Progress struct {
	TotalLinks   int      `json:"total_links"`
	LinksChecked int      `json:"links_checked"`
	Broken       int      `json:"broken"`
	Errors       []string `json:"errors"`
}

// NewJob returns a queued job for site.
func NewJob(site string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Site:      site,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Active returns the oldest queued or checking job for site, or nil.
func (s *JobStore) Active(site string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *Job
	for _, job := range s.jobs {
		job.mu.Lock()
		active := job.Site == site && (job.Status == StatusQueued || job.Status == StatusChecking)
		created := job.CreatedAt
		job.mu.Unlock()
		if active && (oldest == nil || created.Before(oldest.CreatedAt)) {
			oldest = job
		}
	}
	return oldest
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalLinks records the number of links to check.
func (j *Job) SetTotalLinks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalLinks = n
	j.UpdatedAt = time.Now()
}

// SetFingerprint records which site version is being checked.
func (j *Job) SetFingerprint(fp string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Fingerprint = fp
}

// RecordResult counts a checked link and keeps it when broken.
func (j *Job) RecordResult(r linkcheck.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.LinksChecked++
	if r.Err != "" {
		j.Progress.Broken++
		j.broken = append(j.broken, r)
	}
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string             `json:"job_id"`
	Site        string             `json:"site"`
	Status      JobStatus          `json:"status"`
	Phase       string             `json:"phase"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Progress    Progress           `json:"progress"`
	Broken      []linkcheck.Result `json:"broken"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	broken := append([]linkcheck.Result{}, j.broken...)
	return JobSnapshot{
		ID:          j.ID,
		Site:        j.Site,
		Status:      j.Status,
		Phase:       j.Phase,
		Fingerprint: j.Fingerprint,
		Progress: Progress{
			TotalLinks:   j.Progress.TotalLinks,
			LinksChecked: j.Progress.LinksChecked,
			Broken:       j.Progress.Broken,
			Errors:       errs,
		},
		Broken: broken,
	}
}
