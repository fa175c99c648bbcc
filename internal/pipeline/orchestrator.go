package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/doxnav/internal/config"
)

// Orchestrator runs link check jobs against the catalog's sites.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	catalog *Catalog
	stats   *CheckStats
	log     *slog.Logger
	cfg     config.Config

	submitMu sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewOrchestrator creates the job pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, catalog *Catalog, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		catalog: catalog,
		stats:   NewCheckStats(time.Hour),
		log:     log,
		cfg:     cfg,
	}
}

// Start launches worker goroutines, job cleanup and site reloading.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.catalog, o.stats, o.log, o.cfg.CheckConcurrency)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.catalog.Run(workerCtx, o.cfg.ReloadInterval)
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// SubmitCheck queues a link check for site unless one is already queued or
// running, in which case that job is returned with existing set.
func (o *Orchestrator) SubmitCheck(site string) (job *Job, existing bool, err error) {
	o.submitMu.Lock()
	defer o.submitMu.Unlock()
	if job := o.jobs.Active(site); job != nil {
		return job, true, nil
	}
	job = NewJob(site)
	return job, false, o.Submit(job)
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Catalog returns the site catalog for direct use by API handlers.
func (o *Orchestrator) Catalog() *Catalog {
	return o.catalog
}

// Stats returns job duration statistics.
func (o *Orchestrator) Stats() *CheckStats {
	return o.stats
}
