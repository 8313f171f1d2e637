// Package memstore provides an in-memory records.Store seeded either
// from CSV fixture files or from the built-in demo dataset. Suitable
// for the CLI, dev and testing.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carelink/triage-router/internal/records"
)

// medLog is one adherence entry.
type medLog struct {
	patientID string
	status    string // "taken" or "missed"
}

// Store holds all reference data in memory. Reads are lock-protected
// copies so callers can never mutate the seed.
type Store struct {
	mu            sync.RWMutex
	patients      map[string]records.Patient
	appointments  []records.Appointment
	slots         []records.Slot
	prescriptions []records.Prescription
	caregivers    map[string]records.Caregiver
	drugs         map[string]records.DrugInfo
	medLogs       []medLog
}

// New initializes an empty store.
func New() *Store {
	return &Store{
		patients:   make(map[string]records.Patient),
		caregivers: make(map[string]records.Caregiver),
		drugs:      make(map[string]records.DrugInfo),
	}
}

// AddPatient registers a patient record.
func (s *Store) AddPatient(p records.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
}

// AddAppointment registers an appointment record.
func (s *Store) AddAppointment(a records.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append(s.appointments, a)
}

// AddSlot registers an open booking slot.
func (s *Store) AddSlot(sl records.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append(s.slots, sl)
}

// AddPrescription registers an active prescription.
func (s *Store) AddPrescription(p records.Prescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prescriptions = append(s.prescriptions, p)
}

// AddCaregiver registers a caregiver record.
func (s *Store) AddCaregiver(c records.Caregiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caregivers[c.ID] = c
}

// AddDrug registers a knowledge-base row.
func (s *Store) AddDrug(d records.DrugInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drugs[strings.ToLower(d.Name)] = d
}

// AddMedLog registers one adherence entry with status "taken" or "missed".
func (s *Store) AddMedLog(patientID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medLogs = append(s.medLogs, medLog{patientID: patientID, status: strings.ToLower(status)})
}

func (s *Store) Patient(_ context.Context, patientID string) (*records.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[patientID]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *Store) ActiveAppointment(_ context.Context, patientID string) (*records.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.PatientID == patientID && strings.EqualFold(a.Status, "scheduled") {
			cp := a
			return &cp, nil
		}
	}
	return nil, records.ErrNotFound
}

func (s *Store) Prescriptions(_ context.Context, patientID string) ([]records.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []records.Prescription
	for _, p := range s.prescriptions {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) Caregiver(_ context.Context, caregiverID string) (*records.Caregiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.caregivers[caregiverID]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (s *Store) PatientsForCaregiver(_ context.Context, caregiverID string) ([]records.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []records.Patient
	for _, p := range s.patients {
		if p.PrimaryCaregiverID == caregiverID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AvailableSlots(_ context.Context, doctor, visitType string, from, to time.Time) ([]records.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []records.Slot
	for _, sl := range s.slots {
		if sl.Doctor != doctor || sl.Type != visitType {
			continue
		}
		if sl.Date.Before(from) || sl.Date.After(to) {
			continue
		}
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DrugInfo(_ context.Context, drugName string) (*records.DrugInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drugs[strings.ToLower(drugName)]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (s *Store) Adherence(_ context.Context, patientID string) (taken, missed int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.medLogs {
		if m.patientID != patientID {
			continue
		}
		if m.status == "missed" {
			missed++
		} else {
			taken++
		}
	}
	return taken, missed, nil
}
