package memstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/carelink/triage-router/internal/records"
)

// LoadDir builds a Store from the CSV fixture files in dir. Missing
// files are skipped so a partial dataset still loads; malformed rows
// fail the whole load rather than silently dropping records.
//
// Expected files: patients.csv, appointments.csv, slots.csv,
// prescriptions.csv, caregivers.csv, drug_knowledge.csv, med_logs.csv.
func LoadDir(dir string) (*Store, error) {
	s := New()

	loaders := []struct {
		file string
		fn   func(*Store, []string) error
	}{
		{"patients.csv", loadPatient},
		{"appointments.csv", loadAppointment},
		{"slots.csv", loadSlot},
		{"prescriptions.csv", loadPrescription},
		{"caregivers.csv", loadCaregiver},
		{"drug_knowledge.csv", loadDrug},
		{"med_logs.csv", loadMedLog},
	}

	for _, l := range loaders {
		path := filepath.Join(dir, l.file)
		rows, err := readRows(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			if err := l.fn(s, row); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", l.file, i+2, err)
			}
		}
	}
	return s, nil
}

// readRows returns all data rows of a CSV file, header skipped.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}

func loadPatient(s *Store, row []string) error {
	if len(row) < 6 {
		return fmt.Errorf("expected 6 columns, got %d", len(row))
	}
	age, err := strconv.Atoi(row[3])
	if err != nil {
		return fmt.Errorf("age: %w", err)
	}
	var conditions []string
	if row[4] != "" && !strings.EqualFold(row[4], "none") {
		conditions = strings.Split(row[4], ";")
	}
	s.AddPatient(records.Patient{
		ID: row[0], Name: row[1], DOB: row[2], Age: age,
		ChronicConditions: conditions, PrimaryCaregiverID: row[5],
	})
	return nil
}

func loadAppointment(s *Store, row []string) error {
	if len(row) < 9 {
		return fmt.Errorf("expected 9 columns, got %d", len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return fmt.Errorf("appointment_id: %w", err)
	}
	date, err := parseDate(row[2])
	if err != nil {
		return err
	}
	canReschedule, _ := strconv.ParseBool(row[7])
	s.AddAppointment(records.Appointment{
		ID: id, PatientID: row[1], Date: date, Type: row[3], Doctor: row[4],
		Status: row[5], Urgency: row[6], CanReschedule: canReschedule, PlanID: row[8],
	})
	return nil
}

func loadSlot(s *Store, row []string) error {
	if len(row) < 5 {
		return fmt.Errorf("expected 5 columns, got %d", len(row))
	}
	date, err := parseDate(row[0])
	if err != nil {
		return err
	}
	s.AddSlot(records.Slot{Date: date, Doctor: row[1], Type: row[2], Location: row[3], Modality: row[4]})
	return nil
}

func loadPrescription(s *Store, row []string) error {
	if len(row) < 4 {
		return fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	s.AddPrescription(records.Prescription{PatientID: row[0], DrugName: row[1], Dose: row[2], Condition: row[3]})
	return nil
}

func loadCaregiver(s *Store, row []string) error {
	if len(row) < 4 {
		return fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	consent, _ := strconv.ParseBool(row[3])
	s.AddCaregiver(records.Caregiver{ID: row[0], Name: row[1], Relationship: row[2], ConsentOnFile: consent})
	return nil
}

func loadDrug(s *Store, row []string) error {
	if len(row) < 7 {
		return fmt.Errorf("expected 7 columns, got %d", len(row))
	}
	s.AddDrug(records.DrugInfo{
		Name: row[0], Class: row[1], CommonSideEffects: row[2],
		MissedDoseAdvice: row[3], SeriousInteractions: row[4],
		FoodAdvice: row[5], Contraindications: row[6],
	})
	return nil
}

func loadMedLog(s *Store, row []string) error {
	if len(row) < 2 {
		return fmt.Errorf("expected 2 columns, got %d", len(row))
	}
	s.AddMedLog(row[0], row[1])
	return nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", v)
}
