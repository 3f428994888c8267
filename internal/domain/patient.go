package domain

// Admission lifecycle states.
const (
	AdmissionAdmitted   = "admitted"
	AdmissionDischarged = "discharged"
)

// PatientRecord is the locally cached patient identity for the bedside unit.
type PatientRecord struct {
	MRN             string `json:"mrn"`
	Name            string `json:"name"`
	DateOfBirth     string `json:"dateOfBirth"` // ISO 8601 date
	Sex             string `json:"sex"`
	Allergies       string `json:"allergies"`
	BedLocation     string `json:"bedLocation"`
	AdmissionStatus string `json:"admissionStatus"`
	AdmittedAtMs    int64  `json:"admittedAtMs,omitempty"`
	DischargedAtMs  int64  `json:"dischargedAtMs,omitempty"`
	CreatedAtMs     int64  `json:"createdAtMs"`
}

// AdmissionEvent records an admission, transfer or discharge for a patient.
type AdmissionEvent struct {
	ID          int64  `json:"id,omitempty"`
	PatientMRN  string `json:"patientMrn"`
	EventType   string `json:"eventType"` // "admit", "transfer", "discharge"
	Details     string `json:"details"`
	TimestampMs int64  `json:"timestampMs"`
}
