package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"zmon/internal/domain"
	"zmon/internal/storage"
)

// VitalsBuffer accumulates samples in memory and flushes them to the store
// as one batch, either when the buffer reaches its size limit or when the
// flush interval elapses. Add never touches the database, so producers on
// the acquisition path are never stalled by disk I/O.
type VitalsBuffer struct {
	worker   *Worker
	logger   *slog.Logger
	maxSize  int
	interval time.Duration

	mu      sync.Mutex
	pending []domain.VitalRecord

	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewVitalsBuffer creates a buffer flushing through the given worker.
func NewVitalsBuffer(w *Worker, logger *slog.Logger, maxSize int, interval time.Duration) *VitalsBuffer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSize <= 0 {
		maxSize = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	b := &VitalsBuffer{
		worker:   w,
		logger:   logger,
		maxSize:  maxSize,
		interval: interval,
		pending:  make([]domain.VitalRecord, 0, maxSize),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// Add appends a sample to the in-memory buffer. A full buffer wakes the
// flush loop; the flush itself runs there, never on the caller.
func (b *VitalsBuffer) Add(rec domain.VitalRecord) {
	b.mu.Lock()
	b.pending = append(b.pending, rec)
	full := len(b.pending) >= b.maxSize
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default: // a wake-up is already pending
		}
	}
}

// Pending returns the number of buffered samples.
func (b *VitalsBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush drains the buffer and writes the batch through the worker,
// blocking until the write finishes.
func (b *VitalsBuffer) Flush() {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]domain.VitalRecord, 0, b.maxSize)
	b.mu.Unlock()

	err := b.worker.Do(context.Background(), func(s *storage.Store) error {
		_, err := s.Vitals.SaveBatch(batch)
		return err
	})
	if err != nil {
		// The batch is lost only if the store rejected it outright;
		// put it back so a transient failure retries on the next tick.
		b.logger.Error("Vitals flush failed, requeueing batch", "count", len(batch), "error", err)
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.mu.Unlock()
	}
}

func (b *VitalsBuffer) loop() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.Flush()
		case <-b.kick:
			b.Flush()
		case <-b.stop:
			return
		}
	}
}

// Close stops the flush loop and performs a final flush.
func (b *VitalsBuffer) Close() {
	b.stopOnce.Do(func() {
		close(b.stop)
		<-b.done
		b.Flush()
	})
}
