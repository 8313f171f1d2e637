// Package records is the read-side data access layer: patient,
// appointment, prescription and caregiver lookups, scheduling slots,
// and the drug knowledge base. Lookups are keyed by patient id and
// return ErrNotFound rather than an error chain when a record is
// simply absent.
package records

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for any lookup miss. Handlers translate it
// into a user-visible explanatory reply, never into a failure.
var ErrNotFound = errors.New("record not found")

// Patient is one discharged patient on file.
type Patient struct {
	ID                 string
	Name               string
	DOB                string
	Age                int
	Language           string
	ChronicConditions  []string
	PrimaryCaregiverID string
}

// Appointment is a scheduled visit.
type Appointment struct {
	ID            int
	PatientID     string
	Date          time.Time
	Type          string
	Doctor        string
	Status        string
	Urgency       string
	CanReschedule bool
	PlanID        string
}

// Slot is an open booking a patient can be moved into.
type Slot struct {
	Date     time.Time
	Doctor   string
	Type     string
	Location string
	Modality string
}

// Prescription is one active medication order.
type Prescription struct {
	PatientID string
	DrugName  string
	Dose      string
	Condition string
}

// Caregiver is a designated contact for a patient.
type Caregiver struct {
	ID            string
	Name          string
	Relationship  string
	ConsentOnFile bool
}

// DrugInfo is one knowledge-base row, matched by exact drug name.
type DrugInfo struct {
	Name                string
	Class               string
	CommonSideEffects   string
	MissedDoseAdvice    string
	SeriousInteractions string
	FoodAdvice          string
	Contraindications   string
}

// Store is the lookup contract consumed by the handlers. The core
// never writes through this interface; the only writes in the system
// are the append-only logs.
type Store interface {
	Patient(ctx context.Context, patientID string) (*Patient, error)
	ActiveAppointment(ctx context.Context, patientID string) (*Appointment, error)
	Prescriptions(ctx context.Context, patientID string) ([]Prescription, error)
	Caregiver(ctx context.Context, caregiverID string) (*Caregiver, error)
	PatientsForCaregiver(ctx context.Context, caregiverID string) ([]Patient, error)

	// AvailableSlots returns open slots for the same doctor and visit
	// type inside [from, to], soonest first.
	AvailableSlots(ctx context.Context, doctor, visitType string, from, to time.Time) ([]Slot, error)

	// DrugInfo is an exact-name knowledge-base lookup.
	DrugInfo(ctx context.Context, drugName string) (*DrugInfo, error)

	// Adherence counts medication doses taken and missed for a patient.
	Adherence(ctx context.Context, patientID string) (taken, missed int, err error)
}
