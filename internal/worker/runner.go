// Package worker runs work outside the request path: deferred side-effect jobs and the audit consumer.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is a unit of deferred work. Run receives a context bounded by the runner's job timeout.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type RunnerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 30 * time.Second,
	}
}

// Runner executes jobs on a fixed pool of goroutines fed by a bounded queue.
// Jobs are fire-and-forget: failures and panics are logged, never retried or returned.
type Runner struct {
	config RunnerConfig
	jobs   chan Job
	logger zerolog.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	stopped bool
}

func NewRunner(cfg RunnerConfig, logger zerolog.Logger) *Runner {
	return &Runner{
		config: cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		logger: logger.With().Str("component", "runner").Logger(),
	}
}

// Start spawns the workers. They keep draining the queue until Stop is called.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.stopped {
		return fmt.Errorf("runner cannot be started twice")
	}
	r.running = true

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go func(id int) {
			defer r.wg.Done()
			r.work(id)
		}(i + 1)
	}

	r.logger.Info().Int("workers", r.config.Workers).Msg("runner started")
	return nil
}

// Schedule hands job to the pool without blocking. It reports false if the job was dropped.
func (r *Runner) Schedule(job Job) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.logger.Warn().Str("job", job.Name).Msg("runner stopped, dropping job")
		return false
	}

	select {
	case r.jobs <- job:
		r.logger.Debug().Str("job", job.Name).Msg("job scheduled")
		return true
	default:
		r.logger.Warn().Str("job", job.Name).Msg("job queue full, dropping job")
		return false
	}
}

// Stop closes the queue and waits for queued jobs to finish or ctx to expire.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.jobs)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info().Msg("all workers stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn().Msg("timeout waiting for workers to stop")
		return ctx.Err()
	}
}

func (r *Runner) work(id int) {
	for job := range r.jobs {
		r.execute(id, job)
	}
}

func (r *Runner) execute(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.JobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Int("worker", workerID).
				Str("job", job.Name).
				Interface("panic", p).
				Msg("job panicked")
		}
	}()

	if err := job.Run(ctx); err != nil {
		r.logger.Error().
			Err(err).
			Int("worker", workerID).
			Str("job", job.Name).
			Dur("elapsed", time.Since(start)).
			Msg("job failed")
		return
	}

	r.logger.Debug().
		Int("worker", workerID).
		Str("job", job.Name).
		Dur("elapsed", time.Since(start)).
		Msg("job finished")
}
