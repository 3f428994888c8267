package domain

// BatchStatus tracks a telemetry batch through upload.
type BatchStatus string

const (
	BatchPending BatchStatus = "pending"
	BatchSent    BatchStatus = "sent"
	BatchFailed  BatchStatus = "failed"
)

// LatencyMetrics records the upload timeline of a sent batch.
// All fields are epoch milliseconds; zero means not recorded.
type LatencyMetrics struct {
	TransmittedAtMs    int64 `json:"transmittedAtMs"`
	ServerReceivedAtMs int64 `json:"serverReceivedAtMs"`
	ServerAckAtMs      int64 `json:"serverAckAtMs"`
}

// BatchPayload is the content of a telemetry batch. It is serialized to JSON
// and compressed before storage.
type BatchPayload struct {
	Vitals []VitalRecord   `json:"vitals,omitempty"`
	Alarms []AlarmSnapshot `json:"alarms,omitempty"`
}

// TelemetryBatch groups records queued for transmission to the central server.
type TelemetryBatch struct {
	BatchID      string         `json:"batchId"`
	DeviceID     string         `json:"deviceId"`
	PatientMRN   string         `json:"patientMrn,omitempty"`
	CreatedAtMs  int64          `json:"createdAtMs"`
	Status       BatchStatus    `json:"status"`
	RecordCount  int            `json:"recordCount"`
	PayloadBytes int64          `json:"payloadBytes"` // compressed size on disk
	RetryCount   int            `json:"retryCount"`
	Latency      LatencyMetrics `json:"latency"`
	Payload      BatchPayload   `json:"payload"`
}
