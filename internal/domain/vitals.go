// Package domain defines the value objects persisted by the storage layer.
package domain

// Known vital sign types. The column is free text so new device types do not
// require a schema change, but these cover the bedside monitor's channels.
const (
	VitalHeartRate       = "heart_rate"
	VitalSpO2            = "spo2"
	VitalRespirationRate = "respiration_rate"
	VitalTemperature     = "temperature_c"
	VitalSystolicBP      = "systolic_bp"
	VitalDiastolicBP     = "diastolic_bp"
)

// VitalRecord is a single measured vital sign sample.
type VitalRecord struct {
	ID            int64   `json:"id,omitempty"`
	PatientMRN    string  `json:"patientMrn"`
	TimestampMs   int64   `json:"timestampMs"`
	VitalType     string  `json:"vitalType"`
	Value         float64 `json:"value"`
	SignalQuality int     `json:"signalQuality"` // 0-100
	Source        string  `json:"source"`        // device identifier
	Synced        bool    `json:"synced"`
}
