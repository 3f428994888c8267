package worker

import (
	"context"
	"testing"
	"time"

	"zmon/internal/domain"
	"zmon/internal/logging"
	"zmon/internal/storage"
)

func bufferedVital(i int) domain.VitalRecord {
	return domain.VitalRecord{
		PatientMRN:    "MRN1",
		TimestampMs:   int64(1000 + i),
		VitalType:     domain.VitalHeartRate,
		Value:         70,
		SignalQuality: 90,
		Source:        "monitor-01",
	}
}

func countVitals(t *testing.T, w *Worker) int64 {
	t.Helper()
	var count int64
	err := w.Do(context.Background(), func(s *storage.Store) error {
		var err error
		count, err = s.Vitals.CountByPatient("MRN1")
		return err
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestBufferFlushBySize(t *testing.T) {
	w, _ := setupTestWorker(t)
	b := NewVitalsBuffer(w, logging.NewDiscardLogger(), 10, time.Hour)
	defer b.Close()

	for i := 0; i < 9; i++ {
		b.Add(bufferedVital(i))
	}
	if got := countVitals(t, w); got != 0 {
		t.Errorf("premature flush wrote %d records", got)
	}
	if b.Pending() != 9 {
		t.Errorf("pending %d, want 9", b.Pending())
	}

	// The tenth sample trips the size limit; the flush loop picks it up.
	b.Add(bufferedVital(9))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countVitals(t, w) == 10 && b.Pending() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("size flush wrote %d records (pending %d), want 10 stored and 0 pending",
		countVitals(t, w), b.Pending())
}

func TestBufferAddNeverBlocksProducer(t *testing.T) {
	w, _ := setupTestWorker(t)
	b := NewVitalsBuffer(w, logging.NewDiscardLogger(), 3, time.Hour)
	defer b.Close()

	// Hold the worker so the size-triggered flush cannot complete yet.
	release := make(chan struct{})
	if err := w.Submit(context.Background(), func(s *storage.Store) { <-release }); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	added := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			b.Add(bufferedVital(i))
		}
		close(added)
	}()

	select {
	case <-added:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("producer blocked in Add while the worker was busy")
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countVitals(t, w) == 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("size flush never landed, %d records stored", countVitals(t, w))
}

func TestBufferFlushByInterval(t *testing.T) {
	w, _ := setupTestWorker(t)
	b := NewVitalsBuffer(w, logging.NewDiscardLogger(), 1000, 50*time.Millisecond)
	defer b.Close()

	for i := 0; i < 5; i++ {
		b.Add(bufferedVital(i))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countVitals(t, w) == 5 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("interval flush never happened, %d records stored", countVitals(t, w))
}

func TestBufferCloseFlushes(t *testing.T) {
	w, _ := setupTestWorker(t)
	b := NewVitalsBuffer(w, logging.NewDiscardLogger(), 1000, time.Hour)

	for i := 0; i < 7; i++ {
		b.Add(bufferedVital(i))
	}
	b.Close()

	if got := countVitals(t, w); got != 7 {
		t.Errorf("close flushed %d records, want 7", got)
	}
	// Closing twice is a no-op.
	b.Close()
}

func TestBufferExplicitFlush(t *testing.T) {
	w, _ := setupTestWorker(t)
	b := NewVitalsBuffer(w, logging.NewDiscardLogger(), 1000, time.Hour)
	defer b.Close()

	b.Flush() // empty flush is a no-op
	if got := countVitals(t, w); got != 0 {
		t.Errorf("empty flush wrote %d records", got)
	}

	b.Add(bufferedVital(0))
	b.Flush()
	if got := countVitals(t, w); got != 1 {
		t.Errorf("flush wrote %d records, want 1", got)
	}
}
