package handler

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	celeval "github.com/carelink/triage-router/internal/eval/cel"
	"github.com/carelink/triage-router/internal/policy"
	"github.com/carelink/triage-router/internal/records"
)

func newAppointmentHandler(t *testing.T, store records.Store) *Appointment {
	t.Helper()
	eval := celeval.NewEvaluator()
	pol, err := policy.Load("", eval)
	if err != nil {
		t.Fatal(err)
	}
	return NewAppointment(store, pol, eval, zap.NewNop(), clock)
}

func TestAppointmentNeedID(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{Text: "check my appointment"})
	if reply.Decision.Branch != "NEED_ID" {
		t.Errorf("branch = %s, want NEED_ID", reply.Decision.Branch)
	}
}

func TestAppointmentNotFound(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{Text: "check my appointment", PatientID: "99999999"})
	if reply.Decision.Branch != "NOT_FOUND" {
		t.Errorf("branch = %s, want NOT_FOUND", reply.Decision.Branch)
	}
}

func TestAppointmentNoActive(t *testing.T) {
	store := seedStore()
	store.AddPatient(records.Patient{ID: "10009999", Name: "Dan Ito", Age: 45})
	h := newAppointmentHandler(t, store)
	reply := h.Handle(context.Background(), &Request{Text: "check my appointment", PatientID: "10009999"})
	if reply.Decision.Branch != "NO_APPOINTMENT" {
		t.Errorf("branch = %s, want NO_APPOINTMENT", reply.Decision.Branch)
	}
}

// Chest pain attached to a scheduling request escalates before any
// scheduling logic runs.
func TestAppointmentChestPainEscalates(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{
		Text:      "I have chest pain, can we talk about my appointment",
		PatientID: "10004235",
	})
	if reply.Decision.Branch != "RED_ESCALATE" {
		t.Fatalf("branch = %s, want RED_ESCALATE", reply.Decision.Branch)
	}
	if reply.Decision.Tier != "RED" {
		t.Errorf("tier = %s, want RED", reply.Decision.Tier)
	}
	if !strings.Contains(strings.ToLower(reply.Text), "emergency") {
		t.Errorf("reply should direct to the emergency department: %q", reply.Text)
	}
	if _, ok := reply.Decision.Params["slot_count"]; ok {
		t.Error("no reschedule computation should happen on a RED turn")
	}
}

func TestAppointmentOrangeHold(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{
		Text:      "I feel dizzy, should I still come to my visit",
		PatientID: "10004235",
	})
	if reply.Decision.Branch != "ORANGE_HOLD" {
		t.Fatalf("branch = %s, want ORANGE_HOLD", reply.Decision.Branch)
	}
	if reply.Decision.Tier != "ORANGE" {
		t.Errorf("tier = %s, want ORANGE", reply.Decision.Tier)
	}
}

func TestAppointmentStatus(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{
		Text:      "can you check my appointment",
		PatientID: "10004235",
	})
	if reply.Decision.Branch != "STATUS_OK" {
		t.Fatalf("branch = %s, want STATUS_OK", reply.Decision.Branch)
	}
	for _, want := range []string{"Follow-up - Cardiology", "Dr. Johnson", "Alice Lee"} {
		if !strings.Contains(reply.Text, want) {
			t.Errorf("reply missing %q: %q", want, reply.Text)
		}
	}
	if reply.Decision.Tier == "RED" || reply.Decision.Tier == "ORANGE" {
		t.Errorf("tier = %s, want no escalation", reply.Decision.Tier)
	}
}

func TestAppointmentCancel(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{
		Text:      "please cancel my appointment",
		PatientID: "10004235",
	})
	if reply.Decision.Branch != "CANCEL_CONFIRM" {
		t.Errorf("branch = %s, want CANCEL_CONFIRM", reply.Decision.Branch)
	}
}

func TestAppointmentRescheduleOffer(t *testing.T) {
	store := seedStore()
	for day := 2; day <= 6; day++ {
		store.AddSlot(records.Slot{
			Date:   testNow.AddDate(0, 0, day),
			Doctor: "Dr. Johnson", Type: "Follow-up - Cardiology",
			Location: "Clinic A", Modality: "in_person",
		})
	}
	// Wrong doctor, must be filtered out.
	store.AddSlot(records.Slot{
		Date:   testNow.AddDate(0, 0, 3),
		Doctor: "Dr. Patel", Type: "Follow-up - Cardiology",
		Location: "Clinic B", Modality: "in_person",
	})

	h := newAppointmentHandler(t, store)
	reply := h.Handle(context.Background(), &Request{
		Text:      "I need to reschedule my appointment",
		PatientID: "10004235",
	})
	if reply.Decision.Branch != "RESCHEDULE_OFFER" {
		t.Fatalf("branch = %s, want RESCHEDULE_OFFER", reply.Decision.Branch)
	}
	if got := reply.Decision.Params["slot_count"]; got != 3 {
		t.Errorf("slot_count = %v, want capped at 3", got)
	}
	if strings.Contains(reply.Text, "Dr. Patel") {
		t.Error("offer must only contain same-doctor slots")
	}
}

func TestAppointmentRescheduleBlockedUrgentSurgery(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	reply := h.Handle(context.Background(), &Request{
		Text:      "I want to reschedule my surgery",
		PatientID: "10000032",
	})
	if reply.Decision.Branch != "RESCHEDULE_BLOCKED" {
		t.Errorf("branch = %s, want RESCHEDULE_BLOCKED", reply.Decision.Branch)
	}
}

func TestAppointmentMinorConsentGate(t *testing.T) {
	h := newAppointmentHandler(t, seedStore())
	// Cara is 16 and her caregiver has no consent on file.
	reply := h.Handle(context.Background(), &Request{
		Text:      "can you check my appointment",
		PatientID: "10001217",
	})
	if reply.Decision.Branch != "POLICY_BLOCKED" {
		t.Fatalf("branch = %s, want POLICY_BLOCKED", reply.Decision.Branch)
	}
	if got := reply.Decision.Params["gate"]; got != "minor_consent" {
		t.Errorf("gate = %v, want minor_consent", got)
	}
}

func TestAppointmentMinorWithConsentPasses(t *testing.T) {
	store := seedStore()
	store.AddCaregiver(records.Caregiver{ID: "C001", Name: "Mei Wong", Relationship: "mother", ConsentOnFile: true})
	h := newAppointmentHandler(t, store)
	reply := h.Handle(context.Background(), &Request{
		Text:      "can you check my appointment",
		PatientID: "10001217",
	})
	if reply.Decision.Branch != "STATUS_OK" {
		t.Errorf("branch = %s, want STATUS_OK", reply.Decision.Branch)
	}
}

func TestAppointmentReferralGate(t *testing.T) {
	store := seedStore()
	store.AddPatient(records.Patient{ID: "10007777", Name: "Eva Reyes", Age: 52})
	store.AddAppointment(records.Appointment{
		ID: 9, PatientID: "10007777",
		Date: testNow.AddDate(0, 0, 10),
		Type: "Follow-up - Cardiology", Doctor: "Dr. Johnson",
		Status: "scheduled", Urgency: "normal", CanReschedule: true, PlanID: "HMO_A",
	})
	h := newAppointmentHandler(t, store)
	reply := h.Handle(context.Background(), &Request{
		Text:      "I need to reschedule my appointment",
		PatientID: "10007777",
	})
	if reply.Decision.Branch != "POLICY_BLOCKED" {
		t.Fatalf("branch = %s, want POLICY_BLOCKED", reply.Decision.Branch)
	}
	if got := reply.Decision.Params["gate"]; got != "payer_referral" {
		t.Errorf("gate = %v, want payer_referral", got)
	}
}

func TestAppointmentTelehealthGate(t *testing.T) {
	store := seedStore()
	store.AddCaregiver(records.Caregiver{ID: "C001", Name: "Mei Wong", Relationship: "mother", ConsentOnFile: true})
	h := newAppointmentHandler(t, store)
	// Post-op checks are in-person only.
	reply := h.Handle(context.Background(), &Request{
		Text:      "can I switch my visit to video",
		PatientID: "10001217",
	})
	if reply.Decision.Branch != "POLICY_BLOCKED" {
		t.Fatalf("branch = %s, want POLICY_BLOCKED", reply.Decision.Branch)
	}
	if got := reply.Decision.Params["gate"]; got != "telehealth_modality" {
		t.Errorf("gate = %v, want telehealth_modality", got)
	}
}

func TestAppointmentPostOpWindowGate(t *testing.T) {
	store := seedStore()
	store.AddCaregiver(records.Caregiver{ID: "C001", Name: "Mei Wong", Relationship: "mother", ConsentOnFile: true})
	h := newAppointmentHandler(t, store)
	// 30 days out is past the 7-14 day post-op window.
	reply := h.Handle(context.Background(), &Request{
		Text:      "can we move my visit to next month",
		PatientID: "10001217",
	})
	if reply.Decision.Branch != "POLICY_BLOCKED" {
		t.Fatalf("branch = %s, want POLICY_BLOCKED", reply.Decision.Branch)
	}
	if got := reply.Decision.Params["gate"]; got != "postop_window" {
		t.Errorf("gate = %v, want postop_window", got)
	}
}

func TestDetectAction(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"cancel my visit", actionCancel},
		{"I want to reschedule", actionReschedule},
		{"when is my appointment", actionStatus},
		{"about my appointment", actionGeneral},
		{"hello there", actionUnknown},
	}
	for _, tt := range tests {
		if got := detectAction(tt.text); got != tt.want {
			t.Errorf("detectAction(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestDesiredOffsetDays(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"move it to tomorrow", 1},
		{"in 5 days please", 5},
		{"in 2 weeks", 14},
		{"next week works", 7},
		{"next month maybe", 30},
		{"whenever", -1},
	}
	for _, tt := range tests {
		if got := desiredOffsetDays(tt.text); got != tt.want {
			t.Errorf("desiredOffsetDays(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
