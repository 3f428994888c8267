package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"zmon/internal/domain"
	"zmon/internal/logging"
	"zmon/internal/storage"
)

func setupTestWorker(t *testing.T) (*Worker, *storage.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.OpenStore(path, "", logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	w := New(store, logging.NewDiscardLogger(), 16)
	w.Start()
	t.Cleanup(w.Stop)
	return w, store
}

func TestWorkerDo(t *testing.T) {
	w, _ := setupTestWorker(t)

	err := w.Do(context.Background(), func(s *storage.Store) error {
		_, err := s.Vitals.Save(domain.VitalRecord{
			PatientMRN: "MRN1", TimestampMs: 1000, VitalType: domain.VitalHeartRate,
			Value: 70, SignalQuality: 90, Source: "monitor-01",
		})
		return err
	})
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}

	var count int64
	err = w.Do(context.Background(), func(s *storage.Store) error {
		var err error
		count, err = s.Vitals.CountByPatient("MRN1")
		return err
	})
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count %d, want 1", count)
	}
}

func TestWorkerDoPropagatesError(t *testing.T) {
	w, _ := setupTestWorker(t)

	err := w.Do(context.Background(), func(s *storage.Store) error {
		_, err := s.Vitals.Save(domain.VitalRecord{}) // invalid
		return err
	})
	if !storage.IsInvalidArgument(err) {
		t.Errorf("got %v, want invalid_argument", err)
	}
}

func TestWorkerPreservesOrder(t *testing.T) {
	w, _ := setupTestWorker(t)

	var order []int
	for i := 0; i < 20; i++ {
		i := i
		if err := w.Submit(context.Background(), func(s *storage.Store) {
			order = append(order, i)
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	// Drain with a synchronous job; order was appended on the worker
	// goroutine only.
	if err := w.Do(context.Background(), func(s *storage.Store) error { return nil }); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	if len(order) != 20 {
		t.Fatalf("ran %d jobs, want 20", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestWorkerSubmitAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.OpenStore(path, "", logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	w := New(store, logging.NewDiscardLogger(), 4)
	w.Start()
	w.Stop()

	err = w.Submit(context.Background(), func(s *storage.Store) {})
	if !storage.IsConflict(err) {
		t.Errorf("got %v, want conflict", err)
	}
	// Stopping again is a no-op.
	w.Stop()
}

func TestWorkerSubmitContextCancel(t *testing.T) {
	w, _ := setupTestWorker(t)

	// Block the worker, fill the queue, then watch a submit time out.
	release := make(chan struct{})
	w.Submit(context.Background(), func(s *storage.Store) { <-release })
	for i := 0; i < 16; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		w.Submit(ctx, func(s *storage.Store) {})
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := w.Submit(ctx, func(s *storage.Store) {})
	if err != context.DeadlineExceeded {
		t.Errorf("got %v, want deadline exceeded", err)
	}
	close(release)
}
