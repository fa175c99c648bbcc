package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/doxnav/internal/linkcheck"
)

// Worker checks the links of one site per job.
type Worker struct {
	catalog *Catalog
	stats   *CheckStats
	log     *slog.Logger

	concurrency int
}

func NewWorker(catalog *Catalog, stats *CheckStats, log *slog.Logger, concurrency int) *Worker {
	return &Worker{
		catalog:     catalog,
		stats:       stats,
		log:         log,
		concurrency: concurrency,
	}
}

// Process checks every internal URL of the job's site against the pages on
// disk.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "site", job.Site)
	start := time.Now()

	s, ok := w.catalog.Get(job.Site)
	if !ok {
		log.Error("site not loaded")
		job.AddError(fmt.Sprintf("site %q is not loaded", job.Site))
		job.SetStatus(StatusFailed, "loading")
		return
	}
	job.SetFingerprint(s.Fingerprint)

	links := s.Links()
	job.SetTotalLinks(len(links))
	job.SetStatus(StatusChecking, "checking")
	log.Info("checking links", "links", len(links))

	checker := linkcheck.NewChecker(s.Dir)
	linkcheck.Run(ctx, checker, links, w.concurrency, job.RecordResult)

	if err := ctx.Err(); err != nil {
		job.AddError(fmt.Sprintf("interrupted: %s", err))
	}

	snap := job.Snapshot()
	status := StatusCompleted
	switch {
	case len(links) > 0 && snap.Progress.Broken == len(links):
		status = StatusFailed
	case snap.Progress.Broken > 0 || len(snap.Progress.Errors) > 0:
		status = StatusPartial
	}

	// stats before status so pollers that see "done" also see the outcome
	elapsed := time.Since(start)
	w.stats.Record(Outcome{
		Site:     job.Site,
		Status:   status,
		Links:    snap.Progress.LinksChecked,
		Broken:   snap.Progress.Broken,
		Duration: elapsed,
	})
	log.Info("link check complete",
		"status", status,
		"checked", snap.Progress.LinksChecked,
		"broken", snap.Progress.Broken,
		"duration_ms", elapsed.Milliseconds(),
	)
	job.SetStatus(status, "done")
}
