package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vanshika/scansync/internal/metrics"
	"github.com/vanshika/scansync/internal/notify"
)

// ErrRunInProgress is returned when a pass is requested while another is running.
var ErrRunInProgress = errors.New("synchronization already in progress")

// Syncer runs one synchronization pass.
type Syncer interface {
	Synchronize(ctx context.Context) (Report, error)
}

// CursorStore reads and records the last-sync instant.
type CursorStore interface {
	LastSync(ctx context.Context) (time.Time, bool, error)
	RecordSync(ctx context.Context, at time.Time) error
}

// Runner is the scheduler-facing entry point. It allows one pass at a time,
// records the start instant of every successful pass as the new cursor,
// and publishes a run summary. The Synchronizer itself never touches the cursor.
type Runner struct {
	syncer     Syncer
	store      CursorStore
	notifier   notify.Notifier
	metrics    *metrics.Recorder
	logger     *slog.Logger
	instanceID string
	now        func() time.Time

	mu      sync.Mutex
	running bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithNotifier sets the run summary notifier. Defaults to notify.Noop.
func WithNotifier(n notify.Notifier) RunnerOption {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner builds a Runner for instanceID.
func NewRunner(syncer Syncer, store CursorStore, instanceID string, opts ...RunnerOption) *Runner {
	r := &Runner{
		syncer:     syncer,
		store:      store,
		notifier:   notify.Noop{},
		logger:     slog.Default(),
		instanceID: instanceID,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "runner")
	return r
}

// Run executes one pass. It returns ErrRunInProgress without doing anything
// when a pass is already running.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return Report{}, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	started := r.now()
	report, err := r.syncer.Synchronize(ctx)
	if err == nil {
		if recErr := r.store.RecordSync(ctx, started); recErr != nil {
			err = fmt.Errorf("record last sync: %w", recErr)
		} else {
			r.metrics.ObserveLastSuccess(started)
		}
	}
	finished := r.now()

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	r.metrics.ObserveRun(outcome, finished.Sub(started))

	summary := notify.RunSummary{
		RunID:      report.RunID,
		InstanceID: r.instanceID,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Created:    report.Result.Created,
		Updated:    report.Result.Updated,
		Deleted:    report.Result.Deleted,
		Skipped:    len(report.Skipped),
	}
	if err != nil {
		summary.Error = err.Error()
	}
	if notifyErr := r.notifier.NotifyRun(ctx, summary); notifyErr != nil {
		r.logger.Warn("failed to publish run summary", "run_id", report.RunID, "error", notifyErr)
	}

	return report, err
}

// Running reports whether a pass is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastSync returns the recorded cursor.
func (r *Runner) LastSync(ctx context.Context) (time.Time, bool, error) {
	return r.store.LastSync(ctx)
}
