package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"zmon/internal/domain"
)

// TelemetryRepository stores upload batches. Payloads are JSON, compressed
// with zstd before hitting disk; a day of one-second vitals compresses
// roughly 20x.
type TelemetryRepository struct {
	m      *Manager
	logger *slog.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// NewTelemetryRepository creates a telemetry repository on the given manager.
func NewTelemetryRepository(m *Manager, logger *slog.Logger) (*TelemetryRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &TelemetryRepository{m: m, logger: logger, enc: enc, dec: dec}, nil
}

// Save queues a batch for transmission. Missing BatchID, CreatedAtMs,
// Status and RecordCount are filled in; PayloadBytes is set to the
// compressed size. The passed batch is updated with the assigned values.
func (r *TelemetryRepository) Save(b *domain.TelemetryBatch) error {
	if b == nil {
		return invalidArgf("batch must not be nil")
	}
	if b.DeviceID == "" {
		return invalidArgf("batch has empty device id")
	}
	if b.BatchID == "" {
		b.BatchID = uuid.NewString()
	}
	if b.CreatedAtMs == 0 {
		b.CreatedAtMs = time.Now().UnixMilli()
	}
	if b.Status == "" {
		b.Status = domain.BatchPending
	}
	if b.RecordCount == 0 {
		b.RecordCount = len(b.Payload.Vitals) + len(b.Payload.Alarms)
	}

	raw, err := json.Marshal(b.Payload)
	if err != nil {
		return invalidArgf("failed to encode batch payload: %v", err)
	}
	compressed := r.enc.EncodeAll(raw, nil)
	b.PayloadBytes = int64(len(compressed))

	_, err = r.m.Exec(QueryTelemetryInsert,
		b.BatchID, b.DeviceID, nullString(b.PatientMRN), b.CreatedAtMs,
		string(b.Status), b.RecordCount, b.PayloadBytes, b.RetryCount, compressed)
	if err != nil {
		return err
	}
	r.logger.Debug("Telemetry batch queued", "batch_id", b.BatchID, "records", b.RecordCount, "bytes", b.PayloadBytes)
	return nil
}

// GetHistorical returns batches created within [startMs, endMs], oldest
// first. A closed store yields an empty result.
func (r *TelemetryRepository) GetHistorical(startMs, endMs int64) ([]domain.TelemetryBatch, error) {
	if startMs > endMs {
		return nil, invalidArgf("range start %d is after end %d", startMs, endMs)
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetHistorical on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryTelemetryHistorical, startMs, endMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBatchRows(rows)
}

// GetUnsent returns batches awaiting successful transmission, oldest first.
func (r *TelemetryRepository) GetUnsent() ([]domain.TelemetryBatch, error) {
	if !r.m.IsOpen() {
		r.logger.Warn("GetUnsent on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryTelemetryUnsent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBatchRows(rows)
}

// MarkAsSent records a successful transmission with its latency timeline.
// An unknown batch id is a not_found error.
func (r *TelemetryRepository) MarkAsSent(batchID string, lat domain.LatencyMetrics) error {
	if batchID == "" {
		return invalidArgf("batch id must not be empty")
	}
	res, err := r.m.Exec(QueryTelemetryMarkSent,
		nullInt64(lat.TransmittedAtMs), nullInt64(lat.ServerReceivedAtMs),
		nullInt64(lat.ServerAckAtMs), batchID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBErr("failed to count updated batches", err)
	}
	if n == 0 {
		return notFoundf("telemetry batch %s not found", batchID)
	}
	return nil
}

// MarkAsFailed records a failed transmission attempt and bumps the retry
// counter. An unknown batch id is a not_found error.
func (r *TelemetryRepository) MarkAsFailed(batchID string) error {
	if batchID == "" {
		return invalidArgf("batch id must not be empty")
	}
	res, err := r.m.Exec(QueryTelemetryMarkFailed, batchID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBErr("failed to count updated batches", err)
	}
	if n == 0 {
		return notFoundf("telemetry batch %s not found", batchID)
	}
	return nil
}

// Archive removes sent batches older than cutoffMs in its own transaction.
// Batches that never made it to the server are kept regardless of age.
func (r *TelemetryRepository) Archive(cutoffMs int64) (int64, error) {
	var removed int64
	err := r.m.WithTx(func() error {
		res, err := r.m.Exec(QueryTelemetryArchive, cutoffMs)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return wrapDBErr("failed to count archived batches", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.Info("Telemetry archive applied", "removed", removed, "cutoff_ms", cutoffMs)
	}
	return removed, nil
}

func (r *TelemetryRepository) scanBatchRows(rows *sql.Rows) ([]domain.TelemetryBatch, error) {
	var out []domain.TelemetryBatch
	for rows.Next() {
		var (
			b           domain.TelemetryBatch
			mrn         sql.NullString
			status      string
			transmitted sql.NullInt64
			received    sql.NullInt64
			acked       sql.NullInt64
			blob        []byte
		)
		if err := rows.Scan(&b.BatchID, &b.DeviceID, &mrn, &b.CreatedAtMs, &status,
			&b.RecordCount, &b.PayloadBytes, &b.RetryCount,
			&transmitted, &received, &acked, &blob); err != nil {
			return nil, wrapDBErr("failed to scan telemetry batch", err)
		}
		b.Status = domain.BatchStatus(status)
		if mrn.Valid {
			b.PatientMRN = mrn.String
		}
		b.Latency = domain.LatencyMetrics{
			TransmittedAtMs:    transmitted.Int64,
			ServerReceivedAtMs: received.Int64,
			ServerAckAtMs:      acked.Int64,
		}
		if len(blob) > 0 {
			raw, err := r.dec.DecodeAll(blob, nil)
			if err != nil {
				return nil, wrapDBErr(fmt.Sprintf("failed to decompress batch %s", b.BatchID), err)
			}
			if err := json.Unmarshal(raw, &b.Payload); err != nil {
				return nil, wrapDBErr(fmt.Sprintf("failed to decode batch %s payload", b.BatchID), err)
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("failed to iterate telemetry batches", err)
	}
	return out, nil
}
