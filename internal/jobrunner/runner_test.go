package jobrunner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stemsmith/internal/catalog"
	"stemsmith/internal/domain"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/profile"
	"stemsmith/internal/workerpool"
)

func newTestRunner(t *testing.T, processor workerpool.Processor) (*Runner, string) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")
	if err := os.WriteFile(path, []byte("fake"), 0o644); err != nil {
		t.Fatalf("seed input file: %v", err)
	}

	cat := catalog.New(profile.BalancedSixStem, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})

	r := New(cat, filepath.Join(dir, "out"), 2, processor, nil)
	return r, path
}

func TestSubmitAndResultCompleted(t *testing.T) {
	r, path := newTestRunner(t, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		return filepath.Join(d.OutputDir), nil
	})
	defer r.Shutdown()

	handle, err := r.Submit(path, jobmodel.Overrides{}, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, err := handle.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if result.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
}

func TestSubmitDuplicatePathFails(t *testing.T) {
	block := make(chan struct{})
	r, path := newTestRunner(t, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		<-block
		return "", nil
	})
	defer func() {
		close(block)
		r.Shutdown()
	}()

	if _, err := r.Submit(path, jobmodel.Overrides{}, nil); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if _, err := r.Submit(path, jobmodel.Overrides{}, nil); err == nil {
		t.Fatal("expected second submission of the same path to fail")
	}
}

func TestSubmitPropagatesFailure(t *testing.T) {
	r, path := newTestRunner(t, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		return "", errors.New("separation failed")
	})
	defer r.Shutdown()

	handle, err := r.Submit(path, jobmodel.Overrides{}, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, err := handle.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if result.Status != domain.JobStatusFailed || result.Error != "separation failed" {
		t.Fatalf("result = %+v", result)
	}
}

func TestHandleCancelReleasesPathForResubmission(t *testing.T) {
	started := make(chan struct{})
	r, path := newTestRunner(t, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		close(started)
		<-ctx.Done()
		return "", nil
	})
	defer r.Shutdown()

	handle, err := r.Submit(path, jobmodel.Overrides{}, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	if !handle.Cancel("no longer needed") {
		t.Fatal("Cancel() returned false")
	}

	result, err := handle.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if result.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %q, want cancelled", result.Status)
	}

	if _, err := r.Submit(path, jobmodel.Overrides{}, nil); err != nil {
		t.Fatalf("expected resubmission after cancellation to succeed, got %v", err)
	}
}

func TestHandleCancelReasonSurvivesIntoResultError(t *testing.T) {
	started := make(chan struct{})
	r, path := newTestRunner(t, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		close(started)
		<-ctx.Done()
		return "", nil
	})
	defer r.Shutdown()

	handle, err := r.Submit(path, jobmodel.Overrides{}, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	if !handle.Cancel("cancelled by user") {
		t.Fatal("Cancel() returned false")
	}

	result, err := handle.Result(context.Background())
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if result.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %q, want cancelled", result.Status)
	}
	if result.Error != "cancelled by user" {
		t.Fatalf("error = %q, want the cancellation reason to survive", result.Error)
	}
}

// TestSubmitCancelWhileQueuedReportsReason covers cancelling a job that has
// not yet reached a worker: it must still terminate promptly, with the
// cancellation reason carried into Result.Error, rather than waiting for a
// worker that may never dequeue it.
func TestSubmitCancelWhileQueuedReportsReason(t *testing.T) {
	block := make(chan struct{})
	dir := t.TempDir()
	cat := catalog.New(profile.BalancedSixStem, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	r := New(cat, filepath.Join(dir, "out"), 1, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		<-block
		return "", nil
	}, nil)
	defer func() {
		close(block)
		r.Shutdown()
	}()

	firstPath := filepath.Join(dir, "first.wav")
	secondPath := filepath.Join(dir, "second.wav")
	for _, p := range []string{firstPath, secondPath} {
		if err := os.WriteFile(p, []byte("fake"), 0o644); err != nil {
			t.Fatalf("seed input file: %v", err)
		}
	}

	if _, err := r.Submit(firstPath, jobmodel.Overrides{}, nil); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	secondHandle, err := r.Submit(secondPath, jobmodel.Overrides{}, nil)
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	if !secondHandle.Cancel("queue cleared by user") {
		t.Fatal("Cancel() returned false for a still-queued job")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := secondHandle.Result(ctx)
	if err != nil {
		t.Fatalf("Result() error = %v, want the queued job to be cancelled promptly", err)
	}
	if result.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %q, want cancelled", result.Status)
	}
	if result.Error != "queue cleared by user" {
		t.Fatalf("error = %q, want the cancellation reason to survive", result.Error)
	}
}

func TestSetObserverReceivesEvents(t *testing.T) {
	gate := make(chan struct{})
	r, path := newTestRunner(t, func(ctx context.Context, d jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
		<-gate
		return "", nil
	})
	defer r.Shutdown()

	handle, err := r.Submit(path, jobmodel.Overrides{}, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	received := make(chan workerpool.Event, 8)
	handle.SetObserver(func(d jobmodel.Descriptor, e workerpool.Event) {
		received <- e
	})
	close(gate)

	select {
	case <-handle.ctx.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to finish")
	}

	sawTerminal := false
	for {
		select {
		case e := <-received:
			if e.Status.IsTerminal() {
				sawTerminal = true
			}
		default:
			if !sawTerminal {
				t.Fatal("observer never received the terminal event")
			}
			return
		}
	}
}
