package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/metrics"
	"github.com/vanshika/scansync/internal/notify"
	"github.com/vanshika/scansync/internal/state"
)

type stubSyncer struct {
	report  Report
	err     error
	block   chan struct{}
	started chan struct{}
}

func (s *stubSyncer) Synchronize(ctx context.Context) (Report, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	return s.report, s.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []notify.RunSummary
	err       error
}

func (n *recordingNotifier) NotifyRun(_ context.Context, summary notify.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunner_RecordsStartInstantAfterSuccess(t *testing.T) {
	start := time.Date(2019, 5, 22, 14, 4, 12, 128_000_000, time.UTC)
	store := state.NewMemoryStore()
	notifier := &recordingNotifier{}
	syncer := &stubSyncer{report: Report{RunID: "run-1", Result: domain.PublishResult{Created: 3, Updated: 1}}}

	runner := NewRunner(syncer, store, "instance-1",
		WithNotifier(notifier),
		WithMetrics(metrics.New()),
		WithClock(fixedClock(start)))

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PublishResult{Created: 3, Updated: 1}, report.Result)

	last, ok, err := runner.LastSync(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start, last)

	require.Len(t, notifier.summaries, 1)
	summary := notifier.summaries[0]
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "instance-1", summary.InstanceID)
	assert.Equal(t, 3, summary.Created)
	assert.Empty(t, summary.Error)
}

func TestRunner_FailureLeavesCursorUntouched(t *testing.T) {
	previous := time.UnixMilli(1558533852128)
	store := state.NewMemoryStoreAt(previous)
	notifier := &recordingNotifier{}
	syncer := &stubSyncer{err: &domain.PublishError{Err: errors.New("rolled back")}}

	runner := NewRunner(syncer, store, "instance-1", WithNotifier(notifier))
	_, err := runner.Run(context.Background())
	require.Error(t, err)

	last, _, _ := store.LastSync(context.Background())
	assert.Equal(t, previous, last)
	require.Len(t, notifier.summaries, 1)
	assert.Contains(t, notifier.summaries[0].Error, "rolled back")
}

func TestRunner_NotificationFailureIsNotFatal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("nats down")}
	runner := NewRunner(&stubSyncer{}, state.NewMemoryStore(), "instance-1", WithNotifier(notifier))

	_, err := runner.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	syncer := &stubSyncer{block: make(chan struct{}), started: make(chan struct{})}
	runner := NewRunner(syncer, state.NewMemoryStore(), "instance-1")

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		done <- err
	}()
	<-syncer.started

	assert.True(t, runner.Running())
	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(syncer.block)
	require.NoError(t, <-done)
	assert.False(t, runner.Running())
}
