package memstore

import (
	"time"

	"github.com/carelink/triage-router/internal/records"
)

// Demo seeds the built-in development dataset: three discharged
// patients, one upcoming appointment each where applicable, matching
// open slots, prescriptions and the drug knowledge rows the medication
// handler needs. Dates are generated relative to now so scheduling
// rules behave the same on any day the demo runs.
func Demo() *Store {
	s := New()
	now := time.Now()

	s.AddPatient(records.Patient{
		ID: "10004235", Name: "Alice Lee", DOB: "2001-08-08", Age: 24,
		Language: "ENGLISH",
	})
	s.AddPatient(records.Patient{
		ID: "10000032", Name: "Bob Chen", DOB: "1971-03-10", Age: 54,
		Language: "ENGLISH", ChronicConditions: []string{"Diabetes"},
	})
	s.AddPatient(records.Patient{
		ID: "10001217", Name: "Cara Wong", DOB: "2008-02-01", Age: 17,
		Language: "ENGLISH", PrimaryCaregiverID: "C001",
	})

	s.AddCaregiver(records.Caregiver{
		ID: "C001", Name: "Wong, Parent", Relationship: "Mother", ConsentOnFile: true,
	})

	s.AddAppointment(records.Appointment{
		ID: 30409, PatientID: "10000032", Date: now.Add(36 * time.Hour),
		Type: "Surgery - Cardiac Bypass", Doctor: "Dr. Smith",
		Status: "Scheduled", Urgency: "high", PlanID: "HMO_A",
	})
	s.AddAppointment(records.Appointment{
		ID: 30220, PatientID: "10004235", Date: now.AddDate(0, 0, 10),
		Type: "Follow-up - Cardiology", Doctor: "Dr. Johnson",
		Status: "Scheduled", Urgency: "medium", CanReschedule: true, PlanID: "PPO_A",
	})
	s.AddAppointment(records.Appointment{
		ID: 30384, PatientID: "10001217", Date: now.AddDate(0, 0, 5),
		Type: "Consultation - Diabetes", Doctor: "Dr. Wilson",
		Status: "Scheduled", Urgency: "low", CanReschedule: true, PlanID: "HMO_A",
	})

	s.AddSlot(records.Slot{
		Date: now.AddDate(0, 0, 4), Doctor: "Dr. Johnson",
		Type: "Follow-up - Cardiology", Location: "Clinic A", Modality: "in_person",
	})
	s.AddSlot(records.Slot{
		Date: now.AddDate(0, 0, 6), Doctor: "Dr. Johnson",
		Type: "Follow-up - Cardiology", Location: "Clinic A", Modality: "in_person",
	})
	s.AddSlot(records.Slot{
		Date: now.AddDate(0, 0, 3), Doctor: "Dr. Wilson",
		Type: "Consultation - Diabetes", Location: "Clinic B", Modality: "video",
	})

	s.AddPrescription(records.Prescription{
		PatientID: "10000032", DrugName: "Metformin", Dose: "500mg", Condition: "Diabetes",
	})
	s.AddPrescription(records.Prescription{
		PatientID: "10000032", DrugName: "Lisinopril", Dose: "10mg", Condition: "Hypertension",
	})
	s.AddPrescription(records.Prescription{
		PatientID: "10004235", DrugName: "Atorvastatin", Dose: "20mg", Condition: "High cholesterol",
	})

	s.AddDrug(records.DrugInfo{
		Name: "Metformin", Class: "Biguanide",
		CommonSideEffects:   "nausea, upset stomach, and diarrhea",
		MissedDoseAdvice:    "Take the missed dose as soon as you remember unless it is almost time for the next dose; never double up",
		SeriousInteractions: "Avoid combining with excessive alcohol or iodinated contrast agents",
		FoodAdvice:          "Take with meals to reduce stomach upset",
		Contraindications:   "severe kidney disease and metabolic acidosis",
	})
	s.AddDrug(records.DrugInfo{
		Name: "Lisinopril", Class: "ACE inhibitor",
		CommonSideEffects:   "dry cough, dizziness, and elevated potassium",
		MissedDoseAdvice:    "Take the missed dose as soon as you remember; skip it if the next dose is near",
		SeriousInteractions: "Avoid potassium supplements and NSAIDs without provider guidance",
		FoodAdvice:          "May be taken with or without food",
		Contraindications:   "pregnancy and a history of angioedema",
	})
	s.AddDrug(records.DrugInfo{
		Name: "Atorvastatin", Class: "Statin",
		CommonSideEffects:   "muscle aches, headache, and nausea",
		MissedDoseAdvice:    "Take the missed dose as soon as you remember unless the next dose is within 12 hours",
		SeriousInteractions: "Avoid grapefruit juice and certain antifungal or antibiotic medicines",
		FoodAdvice:          "May be taken with or without food, usually in the evening",
		Contraindications:   "active liver disease and pregnancy",
	})

	s.AddMedLog("10001217", "taken")
	s.AddMedLog("10001217", "taken")
	s.AddMedLog("10001217", "missed")

	return s
}
