package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/lock"
)

// --- Mock implementations ---

// CountingBatches reports one succeeded item per call.
type CountingBatches struct {
	calls atomic.Int32
	// block, when set, holds RunBatch until closed.
	block chan struct{}
	err   error
}

func (b *CountingBatches) RunBatch(_ context.Context) (importer.BatchReport, error) {
	b.calls.Add(1)
	if b.block != nil {
		<-b.block
	}
	if b.err != nil {
		return importer.BatchReport{}, b.err
	}
	return importer.BatchReport{
		Succeeded: 1,
		Items:     []importer.ItemOutcome{{ItemID: "1", Outcome: importer.OutcomeCreated}},
	}, nil
}

type RecordingNotifier struct {
	mu      sync.Mutex
	reports []importer.BatchReport
}

func (n *RecordingNotifier) NotifyBatch(_ context.Context, r importer.BatchReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, r)
	return nil
}

func (n *RecordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reports)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRunner(t *testing.T, r *Runner, spec string) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, spec) }()
	return func() {
		stop()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v, want nil", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("runner did not return within 2s after cancel")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --- Tests ---

func TestRunNow_NotifiesOnWork(t *testing.T) {
	batches := &CountingBatches{}
	notifier := &RecordingNotifier{}
	r := NewRunner(batches, nil, notifier, discardLogger())

	report, err := r.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if report.Succeeded != 1 {
		t.Errorf("report = %+v", report)
	}
	if notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.count())
	}
}

func TestRunNow_BusyLock(t *testing.T) {
	locker := lock.NewLocalLocker()
	release, err := locker.TryLock(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release(context.Background())

	batches := &CountingBatches{}
	r := NewRunner(batches, locker, nil, discardLogger())

	if _, err := r.RunNow(context.Background()); !errors.Is(err, ErrBatchInProgress) {
		t.Fatalf("err = %v, want ErrBatchInProgress", err)
	}
	if batches.calls.Load() != 0 {
		t.Error("batch must not run while the lock is held")
	}
}

func TestRunNow_OverlappingCallsRejected(t *testing.T) {
	batches := &CountingBatches{block: make(chan struct{})}
	r := NewRunner(batches, nil, nil, discardLogger())

	first := make(chan error, 1)
	go func() {
		_, err := r.RunNow(context.Background())
		first <- err
	}()
	waitFor(t, func() bool { return batches.calls.Load() == 1 })

	if _, err := r.RunNow(context.Background()); !errors.Is(err, ErrBatchInProgress) {
		t.Errorf("second RunNow err = %v, want ErrBatchInProgress", err)
	}
	close(batches.block)
	if err := <-first; err != nil {
		t.Errorf("first RunNow: %v", err)
	}
}

func TestRunNow_BatchErrorReleasesLock(t *testing.T) {
	batches := &CountingBatches{err: errors.New("db down")}
	r := NewRunner(batches, nil, nil, discardLogger())

	if _, err := r.RunNow(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := r.RunNow(context.Background()); errors.Is(err, ErrBatchInProgress) {
		t.Error("lock was not released after a failed batch")
	}
}

func TestSubmit_ProcessedByRun(t *testing.T) {
	batches := &CountingBatches{}
	r := NewRunner(batches, nil, nil, discardLogger())
	stop := startRunner(t, r, "")
	defer stop()

	r.Submit()
	waitFor(t, func() bool { return batches.calls.Load() == 1 })
}

func TestSubmit_Coalesces(t *testing.T) {
	batches := &CountingBatches{}
	r := NewRunner(batches, nil, nil, discardLogger())

	// No worker yet: the first submission waits, the rest are dropped.
	for i := 0; i < 5; i++ {
		r.Submit()
	}
	stop := startRunner(t, r, "")
	defer stop()

	waitFor(t, func() bool { return batches.calls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if got := batches.calls.Load(); got != 1 {
		t.Errorf("batches = %d, want 1", got)
	}
}

func TestRun_ScheduleRunsImmediately(t *testing.T) {
	batches := &CountingBatches{}
	r := NewRunner(batches, nil, nil, discardLogger())
	stop := startRunner(t, r, "@every 1h")
	defer stop()

	waitFor(t, func() bool { return batches.calls.Load() == 1 })
}

func TestRun_InvalidSpec(t *testing.T) {
	r := NewRunner(&CountingBatches{}, nil, nil, discardLogger())
	if err := r.Run(context.Background(), "every now and then"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
