package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/sushil-thasale/cda-client/internal/logging"
	"github.com/sushil-thasale/cda-client/internal/manifest"
	"github.com/sushil-thasale/cda-client/internal/metrics"
	"github.com/sushil-thasale/cda-client/internal/savepoint"
	"github.com/sushil-thasale/cda-client/internal/sink"
	"github.com/sushil-thasale/cda-client/internal/store"
)

// Options bounds one run of the engine.
type Options struct {
	JobConcurrency   int
	FetchConcurrency int
	DryRun           bool
}

// Engine wires the manifest provider, savepoint store, object store and
// output sink into one incremental-copy pass.
type Engine struct {
	manifests  manifest.Provider
	savepoints savepoint.Store
	objects    store.ObjectStore
	out        sink.Sink
	opts       Options
	log        *slog.Logger
}

// Report summarizes one run for observability. Individual job failures are
// aggregated in JobErrors but never fail the run; they are retried naturally
// on the next invocation.
type Report struct {
	RunID              string
	TablesSeen         int
	JobsPlanned        int
	JobsCompleted      int
	JobsFailed         int
	PartitionsCopied   int
	PartitionsDeferred int
	RowsCopied         int64
	Duration           time.Duration
	JobErrors          error
}

// New creates an engine.
func New(manifests manifest.Provider, savepoints savepoint.Store, objects store.ObjectStore, out sink.Sink, opts Options) *Engine {
	return &Engine{
		manifests:  manifests,
		savepoints: savepoints,
		objects:    objects,
		out:        out,
		opts:       opts,
		log:        logging.Component("engine"),
	}
}

// Run drives one manifest pass: plan jobs for every table, execute them
// under the scheduler's concurrency bounds and block until every job reaches
// a terminal state. The returned error is non-nil only for fatal startup
// conditions (unreadable manifest, invalid sink, savepoint read failure);
// job-local failures are reported in the Report.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.New().String()}
	log := e.log.With("run_id", report.RunID)

	if err := e.out.Validate(ctx); err != nil {
		return nil, fmt.Errorf("sink validation: %w", err)
	}

	entries, err := e.manifests.GetManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	report.TablesSeen = len(entries)

	jobs, deferred, err := e.plan(ctx, entries, log)
	if err != nil {
		return nil, err
	}
	report.JobsPlanned = len(jobs)
	report.PartitionsDeferred = deferred

	log.Info("run planned",
		"tables", report.TablesSeen,
		"jobs", report.JobsPlanned,
		"deferred_partitions", deferred,
	)

	if e.opts.DryRun {
		for _, j := range jobs {
			log.Info("dry-run job",
				"table", j.Table,
				"fingerprint", j.Fingerprint,
				"partitions", len(j.Partitions),
				"state", j.State().String(),
			)
		}
		report.Duration = time.Since(start)
		return report, nil
	}

	sched := NewScheduler(e.objects, e.out, e.savepoints, e.opts.JobConcurrency, e.opts.FetchConcurrency)
	sched.Run(ctx, jobs)

	var jobErrs *multierror.Error
	for _, j := range jobs {
		switch j.State() {
		case JobDone:
			report.JobsCompleted++
			report.PartitionsCopied += len(j.Partitions)
			report.RowsCopied += j.RowsWritten()
		case JobFailed:
			report.JobsFailed++
			jobErrs = multierror.Append(jobErrs, fmt.Errorf("job %s/%s: %w", j.Table, j.Fingerprint, j.Err()))
		}
	}
	report.JobErrors = jobErrs.ErrorOrNil()
	report.Duration = time.Since(start)

	log.Info("run complete",
		"jobs_planned", report.JobsPlanned,
		"jobs_completed", report.JobsCompleted,
		"jobs_failed", report.JobsFailed,
		"partitions_copied", report.PartitionsCopied,
		"rows_copied", report.RowsCopied,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// plan computes the job set: per table, the qualifying fingerprints, their
// candidate partitions past the savepoint, and the safety-window filter.
// A planning failure for one (table, fingerprint) pair produces a pre-failed
// job so other pairs are unaffected; a savepoint read failure is fatal since
// resumability can no longer be judged for the table.
func (e *Engine) plan(ctx context.Context, entries map[string]manifest.Entry, log *slog.Logger) (jobs []*CopyJob, deferred int, err error) {
	tables := make([]string, 0, len(entries))
	for t := range entries {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, table := range tables {
		entry := entries[table]

		watermark := NoWatermark
		if ts, ok, err := e.savepoints.Get(ctx, table); err != nil {
			return nil, 0, fmt.Errorf("read savepoint for %s: %w", table, err)
		} else if ok {
			watermark = ts
		}

		for _, fp := range UnprocessedFingerprints(entry, watermark) {
			job := &CopyJob{
				Table:             table,
				Fingerprint:       fp,
				ManifestTimestamp: entry.LastSuccessfulWriteTimestamp,
			}

			locations, err := Enumerate(ctx, e.objects, entry, fp, watermark)
			if err != nil {
				job.fail(err)
				jobs = append(jobs, job)
				log.Error("planning failed for pair", "table", table, "fingerprint", fp, "error", err)
				if m := metrics.Get(); m != nil {
					m.JobsPlanned.WithLabelValues(table).Inc()
					m.JobsFailed.WithLabelValues(table).Inc()
				}
				continue
			}

			kept, dropped := ApplySafetyWindow(locations, entry.LastSuccessfulWriteTimestamp)
			deferred += len(dropped)
			if len(dropped) > 0 {
				log.Debug("partitions beyond safety window deferred",
					"table", table, "fingerprint", fp, "count", len(dropped))
			}
			if len(kept) == 0 {
				continue
			}

			job.Partitions = kept
			jobs = append(jobs, job)
			if m := metrics.Get(); m != nil {
				m.JobsPlanned.WithLabelValues(table).Inc()
			}
		}
	}
	return jobs, deferred, nil
}
