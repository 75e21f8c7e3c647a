package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRunner(t *testing.T, cfg RunnerConfig) *Runner {
	t.Helper()
	r := NewRunner(cfg, zerolog.Nop())
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})
	return r
}

func TestRunner_RunsScheduledJobs(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 2, QueueSize: 10, JobTimeout: time.Second})

	var wg sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		ok := r.Schedule(Job{Name: "count", Run: func(ctx context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		}})
		if !ok {
			t.Fatalf("job %d was dropped", i)
		}
	}

	wg.Wait()
	if got := count.Load(); got != 5 {
		t.Errorf("Expected 5 jobs to run, got %d", got)
	}
}

func TestRunner_SurvivesFailuresAndPanics(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1, QueueSize: 10, JobTimeout: time.Second})

	r.Schedule(Job{Name: "fail", Run: func(ctx context.Context) error {
		return errors.New("smtp unavailable")
	}})
	r.Schedule(Job{Name: "panic", Run: func(ctx context.Context) error {
		panic("boom")
	}})

	done := make(chan struct{})
	r.Schedule(Job{Name: "after", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a failing and a panicking job")
	}
}

func TestRunner_JobTimeout(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1, QueueSize: 1, JobTimeout: 20 * time.Millisecond})

	result := make(chan error, 1)
	r.Schedule(Job{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}})

	select {
	case err := <-result:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job context was never cancelled")
	}
}

func TestRunner_DropsWhenQueueFull(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1, QueueSize: 1, JobTimeout: time.Second})

	release := make(chan struct{})
	started := make(chan struct{})
	r.Schedule(Job{Name: "block", Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started

	if !r.Schedule(Job{Name: "queued", Run: func(ctx context.Context) error { return nil }}) {
		t.Fatal("Expected the first queued job to be accepted")
	}
	if r.Schedule(Job{Name: "overflow", Run: func(ctx context.Context) error { return nil }}) {
		t.Error("Expected a job to be dropped when the queue is full")
	}
	close(release)
}

func TestRunner_StopDrainsAndRejects(t *testing.T) {
	r := NewRunner(RunnerConfig{Workers: 1, QueueSize: 4, JobTimeout: time.Second}, zerolog.Nop())
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		r.Schedule(Job{Name: "count", Run: func(ctx context.Context) error {
			count.Add(1)
			return nil
		}})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := count.Load(); got != 3 {
		t.Errorf("Expected queued jobs to finish before stop, got %d", got)
	}
	if r.Schedule(Job{Name: "late", Run: func(ctx context.Context) error { return nil }}) {
		t.Error("Expected schedule after stop to be rejected")
	}
	if err := r.Start(); err == nil {
		t.Error("Expected restart after stop to fail")
	}
}
