package storage

import (
	"testing"

	"zmon/internal/domain"
)

func samplePatient(mrn string) domain.PatientRecord {
	return domain.PatientRecord{
		MRN:             mrn,
		Name:            "Doe, Jordan",
		DateOfBirth:     "1961-04-12",
		Sex:             "F",
		Allergies:       "penicillin",
		BedLocation:     "ICU-4",
		AdmissionStatus: domain.AdmissionAdmitted,
		AdmittedAtMs:    1000,
	}
}

func TestPatientSaveAndFind(t *testing.T) {
	store := setupTestStore(t)

	p := samplePatient("MRN1")
	if err := store.Patients.Save(p); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Patients.FindByMRN("MRN1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.Name != p.Name || got.DateOfBirth != p.DateOfBirth || got.Sex != p.Sex ||
		got.Allergies != p.Allergies || got.BedLocation != p.BedLocation ||
		got.AdmissionStatus != p.AdmissionStatus || got.AdmittedAtMs != p.AdmittedAtMs {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.CreatedAtMs == 0 {
		t.Error("created timestamp not set")
	}
}

func TestPatientUpsert(t *testing.T) {
	store := setupTestStore(t)

	p := samplePatient("MRN1")
	if err := store.Patients.Save(p); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	p.BedLocation = "ICU-7"
	p.AdmissionStatus = domain.AdmissionDischarged
	p.DischargedAtMs = 9000
	if err := store.Patients.Save(p); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, _ := store.Patients.FindByMRN("MRN1")
	if got.BedLocation != "ICU-7" || got.AdmissionStatus != domain.AdmissionDischarged || got.DischargedAtMs != 9000 {
		t.Errorf("update not applied: %+v", got)
	}

	all, _ := store.Patients.FindAll()
	if len(all) != 1 {
		t.Errorf("upsert created a duplicate row: %d patients", len(all))
	}
}

func TestPatientExistsAndDelete(t *testing.T) {
	store := setupTestStore(t)

	exists, err := store.Patients.Exists("MRN1")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Error("patient should not exist yet")
	}

	store.Patients.Save(samplePatient("MRN1"))
	exists, _ = store.Patients.Exists("MRN1")
	if !exists {
		t.Error("patient should exist")
	}

	if err := store.Patients.Delete("MRN1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Patients.Delete("MRN1"); !IsNotFound(err) {
		t.Errorf("second delete: got %v, want not_found", err)
	}
	if _, err := store.Patients.FindByMRN("MRN1"); !IsNotFound(err) {
		t.Errorf("find after delete: got %v, want not_found", err)
	}
}

func TestPatientAdmissionHistory(t *testing.T) {
	store := setupTestStore(t)
	store.Patients.Save(samplePatient("MRN1"))

	events := []domain.AdmissionEvent{
		{PatientMRN: "MRN1", EventType: "admit", Details: "ICU-4", TimestampMs: 1000},
		{PatientMRN: "MRN1", EventType: "transfer", Details: "ICU-7", TimestampMs: 2000},
		{PatientMRN: "MRN1", EventType: "discharge", TimestampMs: 3000},
	}
	for _, ev := range events {
		if err := store.Patients.RecordAdmissionEvent(ev); err != nil {
			t.Fatalf("record event failed: %v", err)
		}
	}
	// Other patients don't leak in.
	store.Patients.RecordAdmissionEvent(domain.AdmissionEvent{PatientMRN: "MRN2", EventType: "admit", TimestampMs: 1500})

	hist, err := store.Patients.GetAdmissionHistory("MRN1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("got %d events, want 3", len(hist))
	}
	for i, want := range []string{"admit", "transfer", "discharge"} {
		if hist[i].EventType != want {
			t.Errorf("event %d: got %s, want %s", i, hist[i].EventType, want)
		}
	}
}

func TestPatientValidation(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Patients.Save(domain.PatientRecord{Name: "No MRN"}); !IsInvalidArgument(err) {
		t.Errorf("empty MRN: got %v, want invalid_argument", err)
	}
	if err := store.Patients.Save(domain.PatientRecord{MRN: "MRN1"}); !IsInvalidArgument(err) {
		t.Errorf("empty name: got %v, want invalid_argument", err)
	}
	if err := store.Patients.RecordAdmissionEvent(domain.AdmissionEvent{EventType: "admit"}); !IsInvalidArgument(err) {
		t.Errorf("event without MRN: got %v, want invalid_argument", err)
	}
}
