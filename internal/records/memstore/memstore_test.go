package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelink/triage-router/internal/records"
)

func TestPatientLookup(t *testing.T) {
	s := New()
	s.AddPatient(records.Patient{ID: "10004235", Name: "Alice"})

	p, err := s.Patient(context.Background(), "10004235")
	if err != nil {
		t.Fatalf("Patient: %v", err)
	}
	if p.Name != "Alice" {
		t.Errorf("name = %q, want Alice", p.Name)
	}

	if _, err := s.Patient(context.Background(), "99999999"); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("missing patient error = %v, want ErrNotFound", err)
	}
}

func TestActiveAppointmentSkipsNonScheduled(t *testing.T) {
	s := New()
	s.AddAppointment(records.Appointment{ID: 1, PatientID: "10004235", Status: "cancelled"})
	s.AddAppointment(records.Appointment{ID: 2, PatientID: "10004235", Status: "scheduled", Doctor: "Dr. Lee"})
	s.AddAppointment(records.Appointment{ID: 3, PatientID: "10004235", Status: "scheduled", Doctor: "Dr. Wu"})

	a, err := s.ActiveAppointment(context.Background(), "10004235")
	if err != nil {
		t.Fatalf("ActiveAppointment: %v", err)
	}
	if a.ID != 2 {
		t.Errorf("appointment id = %d, want first scheduled (2)", a.ID)
	}
}

func TestAvailableSlotsFilterAndOrder(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := New()
	s.AddSlot(records.Slot{Date: base.AddDate(0, 0, 5), Doctor: "Dr. Lee", Type: "Cardiology Follow-up"})
	s.AddSlot(records.Slot{Date: base.AddDate(0, 0, 2), Doctor: "Dr. Lee", Type: "Cardiology Follow-up"})
	s.AddSlot(records.Slot{Date: base.AddDate(0, 0, 3), Doctor: "Dr. Wu", Type: "Cardiology Follow-up"})
	s.AddSlot(records.Slot{Date: base.AddDate(0, 0, 40), Doctor: "Dr. Lee", Type: "Cardiology Follow-up"})

	slots, err := s.AvailableSlots(context.Background(), "Dr. Lee", "Cardiology Follow-up", base, base.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	if !slots[0].Date.Before(slots[1].Date) {
		t.Error("slots not sorted soonest first")
	}
}

func TestAdherenceCounts(t *testing.T) {
	s := New()
	s.AddMedLog("10004235", "taken")
	s.AddMedLog("10004235", "taken")
	s.AddMedLog("10004235", "missed")
	s.AddMedLog("10000032", "missed")

	taken, missed, err := s.Adherence(context.Background(), "10004235")
	if err != nil {
		t.Fatalf("Adherence: %v", err)
	}
	if taken != 2 || missed != 1 {
		t.Errorf("taken=%d missed=%d, want 2/1", taken, missed)
	}
}

func TestDrugInfoCaseInsensitive(t *testing.T) {
	s := New()
	s.AddDrug(records.DrugInfo{Name: "Metformin", Class: "biguanide"})

	d, err := s.DrugInfo(context.Background(), "METFORMIN")
	if err != nil {
		t.Fatalf("DrugInfo: %v", err)
	}
	if d.Class != "biguanide" {
		t.Errorf("class = %q", d.Class)
	}
}

func TestPatientsForCaregiverSorted(t *testing.T) {
	s := New()
	s.AddPatient(records.Patient{ID: "10002000", PrimaryCaregiverID: "C001"})
	s.AddPatient(records.Patient{ID: "10001000", PrimaryCaregiverID: "C001"})
	s.AddPatient(records.Patient{ID: "10003000", PrimaryCaregiverID: "C002"})

	out, err := s.PatientsForCaregiver(context.Background(), "C001")
	if err != nil {
		t.Fatalf("PatientsForCaregiver: %v", err)
	}
	if len(out) != 2 || out[0].ID != "10001000" || out[1].ID != "10002000" {
		t.Errorf("unexpected result: %+v", out)
	}
}
