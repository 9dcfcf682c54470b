package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sushil-thasale/cda-client/internal/logging"
	"github.com/sushil-thasale/cda-client/internal/metrics"
	"github.com/sushil-thasale/cda-client/internal/records"
	"github.com/sushil-thasale/cda-client/internal/savepoint"
	"github.com/sushil-thasale/cda-client/internal/sink"
	"github.com/sushil-thasale/cda-client/internal/store"
)

// Scheduler executes copy jobs under a two-level concurrency bound: at most
// jobLimit jobs hold an execution slot at once, and each admitted job fetches
// its partitions with at most fetchLimit concurrent reads. The fetch pool is
// scoped to the job and released when the job ends.
type Scheduler struct {
	objects    store.ObjectStore
	out        sink.Sink
	savepoints savepoint.Store
	jobLimit   int
	fetchLimit int
	log        *slog.Logger
}

// NewScheduler creates a scheduler. Limits below 1 are raised to 1.
func NewScheduler(objects store.ObjectStore, out sink.Sink, savepoints savepoint.Store, jobLimit, fetchLimit int) *Scheduler {
	if jobLimit < 1 {
		jobLimit = 1
	}
	if fetchLimit < 1 {
		fetchLimit = 1
	}
	return &Scheduler{
		objects:    objects,
		out:        out,
		savepoints: savepoints,
		jobLimit:   jobLimit,
		fetchLimit: fetchLimit,
		log:        logging.Component("scheduler"),
	}
}

// Run executes every job and returns only after each has reached a terminal
// state. Jobs fail independently; Run itself never fails, it is a barrier.
func (s *Scheduler) Run(ctx context.Context, jobs []*CopyJob) {
	sem := semaphore.NewWeighted(int64(s.jobLimit))
	var wg sync.WaitGroup

	for _, job := range jobs {
		if job.State() == JobFailed {
			// Planning already failed this pair.
			continue
		}
		wg.Add(1)
		go func(j *CopyJob) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				j.fail(fmt.Errorf("acquire job slot: %w", err))
				return
			}
			defer sem.Release(1)
			s.runJob(ctx, j)
		}(job)
	}

	wg.Wait()
}

// runJob drives one job through fetch, merge, write and savepoint commit.
func (s *Scheduler) runJob(ctx context.Context, job *CopyJob) {
	log := logging.JobLogger(logging.GenerateCorrelationID(), job.Table, job.Fingerprint)
	start := time.Now()

	if m := metrics.Get(); m != nil {
		m.InFlightJobs.Inc()
		defer m.InFlightJobs.Dec()
	}

	log.Info("job admitted", "partitions", len(job.Partitions))

	job.setState(JobFetching)
	batches, err := s.fetchPartitions(ctx, job, log)
	if err != nil {
		s.failJob(job, log, err)
		return
	}

	job.setState(JobMerging)
	merged, err := MergeBatches(job, batches)
	if err != nil {
		s.failJob(job, log, err)
		return
	}

	job.setState(JobWriting)
	if err := s.out.Write(ctx, merged.Table, merged.Fingerprint, merged.ManifestTimestamp, merged.Batch); err != nil {
		if m := metrics.Get(); m != nil {
			m.SinkErrors.WithLabelValues(job.Table).Inc()
		}
		s.failJob(job, log, fmt.Errorf("write merged batch: %w", err))
		return
	}

	job.setState(JobCommittingSavepoint)
	if err := CommitSavepoint(ctx, s.savepoints, job.Table, job.ManifestTimestamp); err != nil {
		s.failJob(job, log, err)
		return
	}

	job.setRowsWritten(int64(merged.Batch.NumRows()))
	job.setState(JobDone)

	elapsed := time.Since(start)
	log.Info("job done",
		"partitions", len(job.Partitions),
		"rows", merged.Batch.NumRows(),
		"savepoint", job.ManifestTimestamp,
		"duration_ms", elapsed.Milliseconds(),
	)

	if m := metrics.Get(); m != nil {
		m.JobsCompleted.WithLabelValues(job.Table).Inc()
		m.PartitionsCopied.WithLabelValues(job.Table).Add(float64(len(job.Partitions)))
		m.RowsCopied.WithLabelValues(job.Table).Add(float64(merged.Batch.NumRows()))
		m.JobDuration.WithLabelValues(job.Table).Observe(elapsed.Seconds())
	}
}

// fetchPartitions reads every partition of the job with a bounded pool
// scoped to the job. Arrival order is arbitrary; results are indexed so the
// merge sees a stable order regardless.
func (s *Scheduler) fetchPartitions(ctx context.Context, job *CopyJob, log *slog.Logger) ([]*records.Batch, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit)

	batches := make([]*records.Batch, len(job.Partitions))
	for i, p := range job.Partitions {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			batch, err := s.objects.ReadPartition(gctx, p.Key)
			if err != nil {
				if m := metrics.Get(); m != nil {
					m.StoreErrors.WithLabelValues(job.Table).Inc()
				}
				return fmt.Errorf("fetch partition %s: %w", p.Key, err)
			}
			if m := metrics.Get(); m != nil {
				m.FetchDuration.WithLabelValues(job.Table).Observe(time.Since(start).Seconds())
			}
			log.Debug("fetched partition", "key", p.Key, "rows", batch.NumRows())
			batches[i] = batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// failJob records a job-local failure. The job's partitions stay
// uncommitted, so the next run re-selects exactly the same window.
func (s *Scheduler) failJob(job *CopyJob, log *slog.Logger, err error) {
	job.fail(err)
	log.Error("job failed", "state", job.State().String(), "error", err)
	if m := metrics.Get(); m != nil {
		m.JobsFailed.WithLabelValues(job.Table).Inc()
	}
}
