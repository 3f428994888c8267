package domain

// AlarmPriority classifies clinical urgency.
type AlarmPriority string

const (
	PriorityCritical AlarmPriority = "CRITICAL"
	PriorityHigh     AlarmPriority = "HIGH"
	PriorityMedium   AlarmPriority = "MEDIUM"
	PriorityLow      AlarmPriority = "LOW"
)

// SortRank returns the ordering weight used when listing active alarms,
// most urgent first.
func (p AlarmPriority) SortRank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// AlarmStatus is the lifecycle state of an alarm.
type AlarmStatus string

const (
	AlarmActive       AlarmStatus = "active"
	AlarmAcknowledged AlarmStatus = "acknowledged"
	AlarmSilenced     AlarmStatus = "silenced"
	AlarmExpired      AlarmStatus = "expired"
)

// Valid reports whether s is a known alarm status.
func (s AlarmStatus) Valid() bool {
	switch s {
	case AlarmActive, AlarmAcknowledged, AlarmSilenced, AlarmExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Re-asserting the current status is not a transition. Expired is terminal.
func (s AlarmStatus) CanTransitionTo(next AlarmStatus) bool {
	switch s {
	case AlarmActive:
		return next == AlarmAcknowledged || next == AlarmSilenced || next == AlarmExpired
	case AlarmSilenced:
		return next == AlarmAcknowledged || next == AlarmExpired
	case AlarmAcknowledged:
		return next == AlarmExpired
	default:
		return false
	}
}

// AlarmSnapshot is the persisted state of one alarm occurrence.
type AlarmSnapshot struct {
	AlarmID          string        `json:"alarmId"`
	AlarmType        string        `json:"alarmType"` // e.g. "HR_HIGH", "SPO2_LOW"
	Priority         AlarmPriority `json:"priority"`
	Status           AlarmStatus   `json:"status"`
	Value            float64       `json:"value"`
	Threshold        float64       `json:"threshold"`
	TimestampMs      int64         `json:"timestampMs"`
	PatientMRN       string        `json:"patientMrn"`
	DeviceID         string        `json:"deviceId"`
	AcknowledgedBy   string        `json:"acknowledgedBy,omitempty"`
	AcknowledgedAtMs int64         `json:"acknowledgedAtMs,omitempty"`
}
