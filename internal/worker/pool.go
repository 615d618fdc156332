// Package worker provides the bounded goroutine pool that runs the
// orchestration side of an interview: event handlers, transcription
// follow-ups, and feedback jobs. Work submitted here must never run on a
// request goroutine, and a full queue sheds load instead of blocking the
// submitter.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one unit of background work. The context is the pool's own context
// and is cancelled when the pool shuts down.
type Job func(ctx context.Context)

// task pairs a job with the name it was submitted under.
type task struct {
	name string
	job  Job
}

// Config tunes a Pool.
type Config struct {
	// Workers is the number of concurrent job goroutines. Default: 8.
	Workers int

	// QueueSize bounds the backlog of accepted jobs. Default: 256.
	QueueSize int
}

// Pool runs submitted jobs on a fixed set of goroutines.
type Pool struct {
	jobs    chan task
	workers int
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once

	mu      sync.Mutex
	stopped bool
}

// Option is a functional option for configuring the Pool.
type Option func(*Pool)

// WithLogger sets the logger used for dropped jobs and recovered panics.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pool) {
		p.log = log
	}
}

// New creates a Pool. Call Start before submitting work.
func New(cfg Config, opts ...Option) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan task, cfg.QueueSize),
		workers: cfg.Workers,
		log:     slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start launches the worker goroutines. Safe to call more than once.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for t := range p.jobs {
					p.run(t)
				}
			}()
		}
	})
}

// run executes one job, containing panics so a broken handler cannot take
// down the pool.
func (p *Pool) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker job panicked", "job", t.name, "panic", r)
		}
	}()
	t.job(p.ctx)
}

// Submit queues a named job for execution. The name appears in drop and
// panic logs. Submit returns false when the pool has stopped or the queue is
// full; the caller decides whether that is fatal.
func (p *Pool) Submit(name string, job Job) bool {
	if job == nil {
		return false
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	select {
	case p.jobs <- task{name: name, job: job}:
		p.mu.Unlock()
		return true
	default:
		p.mu.Unlock()
		p.log.Warn("worker queue full, job dropped", "job", name, "queue_size", cap(p.jobs))
		return false
	}
}

// Shutdown rejects new submissions and waits for queued and in-flight jobs
// to finish. When ctx expires first, the pool context is cancelled so
// running jobs wind down, and ctx.Err() is returned without waiting for
// them. Safe to call more than once; later calls return nil immediately.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.jobs)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			p.cancel()
			err = ctx.Err()
		}
	})
	return err
}

// Stop is Shutdown without a deadline: it cancels running jobs immediately
// and waits for the workers to exit. Intended for tests.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		p.cancel()
		close(p.jobs)
		p.wg.Wait()
	})
}
