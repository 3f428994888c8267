// Package worker serializes all database access onto a single goroutine.
// The SQLite connection and its transaction state have one owner; everyone
// else submits closures through a bounded queue.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"zmon/internal/storage"
)

// Job is a unit of database work. It runs on the worker goroutine and is
// the only place repository calls are allowed.
type Job func(s *storage.Store)

// Worker owns the store and drains the job queue in submission order.
type Worker struct {
	store  *storage.Store
	logger *slog.Logger
	jobs   chan Job

	mu      sync.RWMutex // guards closed against the channel close in Stop
	started bool
	closed  bool
	done    chan struct{}
}

// New creates a worker with the given queue capacity.
func New(store *storage.Store, logger *slog.Logger, queueSize int) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		store:  store,
		logger: logger,
		jobs:   make(chan Job, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. Starting twice is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.run()
}

func (w *Worker) run() {
	defer close(w.done)
	for job := range w.jobs {
		job(w.store)
	}
}

// Submit enqueues a job. It blocks while the queue is full until ctx is
// done; a closed worker rejects the job with a conflict error.
func (w *Worker) Submit(ctx context.Context, job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return &storage.Error{Code: storage.CodeConflict, Message: "worker is shut down"}
	}

	select {
	case w.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do submits a job and waits for it to finish, returning whatever error the
// job produced. This is the synchronous path for queries.
func (w *Worker) Do(ctx context.Context, fn func(s *storage.Store) error) error {
	result := make(chan error, 1)
	err := w.Submit(ctx, func(s *storage.Store) {
		result <- fn(s)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects further submissions, drains the queue and waits for the
// worker goroutine to exit. Stopping twice is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	// The write lock waits out any submit still holding the read lock,
	// so nobody can send on a closed channel.
	close(w.jobs)
	w.mu.Unlock()

	<-w.done
	w.logger.Info("Database worker stopped")
}
