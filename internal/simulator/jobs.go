package simulator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/netpulse/internal/metrics"
	"github.com/miradorstack/netpulse/internal/utils"
)

// JobState is the lifecycle position of a background job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobCancelled JobState = "cancelled"
	JobFailed    JobState = "failed"
)

// DefaultJobRetention is how long finished jobs stay queryable.
const DefaultJobRetention = time.Hour

// JobFunc performs the work of a job and reports how many samples it emitted.
type JobFunc func(ctx context.Context) (int, error)

// Job is a snapshot of a background job.
type Job struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	State      JobState   `json:"state"`
	Requested  int        `json:"requested"`
	Emitted    int        `json:"emitted"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type jobEntry struct {
	job    Job
	cancel context.CancelFunc
	done   chan struct{}
}

// JobRunner executes simulator batches independently of the request that started them.
type JobRunner struct {
	mu        sync.Mutex
	jobs      map[string]*jobEntry
	base      context.Context
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time
}

// JobRunnerOption customises a JobRunner.
type JobRunnerOption func(*JobRunner)

// WithRetention sets how long finished jobs are kept before eviction.
func WithRetention(d time.Duration) JobRunnerOption {
	return func(r *JobRunner) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithJobClock overrides the clock used for job timestamps and eviction.
func WithJobClock(now func() time.Time) JobRunnerOption {
	return func(r *JobRunner) { r.now = now }
}

// NewJobRunner derives every job context from base; cancelling base stops all jobs.
func NewJobRunner(base context.Context, logger *slog.Logger, opts ...JobRunnerOption) *JobRunner {
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &JobRunner{
		jobs:      make(map[string]*jobEntry),
		base:      base,
		logger:    logger,
		retention: DefaultJobRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches fn in its own goroutine and returns the job snapshot.
func (r *JobRunner) Start(kind string, requested int, fn JobFunc) Job {
	ctx, cancel := context.WithCancel(r.base)
	entry := &jobEntry{
		job: Job{
			ID:        uuid.NewString(),
			Kind:      kind,
			State:     JobRunning,
			Requested: requested,
			StartedAt: r.now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.evictLocked()
	r.jobs[entry.job.ID] = entry
	snapshot := entry.job
	r.mu.Unlock()

	r.logger.Info("job started", slog.String("job_id", snapshot.ID), slog.String("kind", kind))
	go r.run(ctx, entry, fn)
	return snapshot
}

func (r *JobRunner) run(ctx context.Context, entry *jobEntry, fn JobFunc) {
	defer close(entry.done)
	defer entry.cancel()

	emitted, err := fn(ctx)
	finished := r.now().UTC()

	r.mu.Lock()
	entry.job.Emitted = emitted
	entry.job.FinishedAt = &finished
	switch {
	case err != nil:
		entry.job.State = JobFailed
		entry.job.Error = err.Error()
	case emitted >= entry.job.Requested:
		entry.job.State = JobCompleted
	case ctx.Err() != nil:
		entry.job.State = JobCancelled
	default:
		entry.job.State = JobCompleted
	}
	snapshot := entry.job
	r.mu.Unlock()

	metrics.ObserveJob(string(snapshot.State))
	attrs := []any{
		slog.String("job_id", snapshot.ID),
		slog.String("state", string(snapshot.State)),
		slog.Int("emitted", snapshot.Emitted),
	}
	if err != nil {
		r.logger.Error("job failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	r.logger.Info("job finished", attrs...)
}

// evictLocked drops jobs that finished more than retention ago.
func (r *JobRunner) evictLocked() {
	cutoff := r.now().UTC().Add(-r.retention)
	for id, entry := range r.jobs {
		if f := entry.job.FinishedAt; f != nil && f.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

// Len reports how many jobs are tracked.
func (r *JobRunner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Get returns the job snapshot for id.
func (r *JobRunner) Get(id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok {
		return Job{}, utils.NewAppError("simulator.JobRunner.Get", utils.KindNotFound, "job "+id+" not found", nil)
	}
	return entry.job, nil
}

// Cancel requests that a running job stop and returns its current snapshot.
func (r *JobRunner) Cancel(id string) (Job, error) {
	r.mu.Lock()
	entry, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Job{}, utils.NewAppError("simulator.JobRunner.Cancel", utils.KindNotFound, "job "+id+" not found", nil)
	}
	entry.cancel()
	return r.Get(id)
}

// Wait blocks until the job finishes or ctx ends.
func (r *JobRunner) Wait(ctx context.Context, id string) (Job, error) {
	r.mu.Lock()
	entry, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Job{}, utils.NewAppError("simulator.JobRunner.Wait", utils.KindNotFound, "job "+id+" not found", nil)
	}
	select {
	case <-entry.done:
		return r.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}
