package handler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/llm"
	"github.com/carelink/triage-router/internal/records"
	"github.com/carelink/triage-router/internal/records/memstore"
	"github.com/carelink/triage-router/internal/symptomlog"
)

// fixed clock for deterministic scheduling windows.
var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// noInvoker has zero usable providers, forcing every deterministic
// fallback path.
func noInvoker() *llm.Invoker {
	return llm.NewInvoker(nil, "openai", []string{"openai"}, zap.NewNop())
}

type stubProvider struct {
	reply string
	fail  bool
}

func (s *stubProvider) Name() string         { return "stub" }
func (s *stubProvider) DefaultModel() string { return "stub-1" }
func (s *stubProvider) Available() bool      { return true }

func (s *stubProvider) Generate(_ context.Context, _ []llm.Message, _ float64) (string, error) {
	if s.fail {
		return "", errors.New("provider down")
	}
	return s.reply, nil
}

func stubInvoker(reply string) *llm.Invoker {
	return llm.NewInvoker([]llm.Provider{&stubProvider{reply: reply}}, "stub", []string{"stub"}, zap.NewNop())
}

// failingInvoker has a credentialed provider whose every attempt
// errors, exercising the exhausted-chain paths.
func failingInvoker() *llm.Invoker {
	return llm.NewInvoker([]llm.Provider{&stubProvider{fail: true}}, "stub", []string{"stub"}, zap.NewNop())
}

func testLog(t *testing.T) *symptomlog.FileStore {
	t.Helper()
	fs, err := symptomlog.NewFileStore(filepath.Join(t.TempDir(), "symptoms.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

// seedStore builds the standard fixture set: an adult with a routine
// follow-up, an adult with imminent urgent surgery, and a minor.
func seedStore() *memstore.Store {
	s := memstore.New()

	s.AddPatient(records.Patient{ID: "10004235", Name: "Alice Lee", Age: 58, Language: "en"})
	s.AddAppointment(records.Appointment{
		ID: 1, PatientID: "10004235",
		Date:   testNow.AddDate(0, 0, 10),
		Type:   "Follow-up - Cardiology",
		Doctor: "Dr. Johnson", Status: "scheduled",
		Urgency: "normal", CanReschedule: true, PlanID: "PPO_B",
	})

	s.AddPatient(records.Patient{ID: "10000032", Name: "Bob Chen", Age: 61, Language: "en"})
	s.AddAppointment(records.Appointment{
		ID: 2, PatientID: "10000032",
		Date: testNow.Add(36 * time.Hour),
		Type: "Surgery", Doctor: "Dr. Patel", Status: "scheduled",
		Urgency: "high", CanReschedule: false, PlanID: "PPO_B",
	})

	s.AddPatient(records.Patient{ID: "10001217", Name: "Cara Wong", Age: 16, Language: "en", PrimaryCaregiverID: "C001"})
	s.AddAppointment(records.Appointment{
		ID: 3, PatientID: "10001217",
		Date: testNow.AddDate(0, 0, 5),
		Type: "Post-op Check", Doctor: "Dr. Ross", Status: "scheduled",
		Urgency: "normal", CanReschedule: true, PlanID: "PPO_B",
	})
	s.AddCaregiver(records.Caregiver{ID: "C001", Name: "Mei Wong", Relationship: "mother", ConsentOnFile: false})

	return s
}

type panicHandler struct{}

func (panicHandler) Name() string { return "boom" }

func (panicHandler) Handle(context.Context, *Request) *Reply {
	panic("unexpected")
}

func TestGuardConvertsPanicToApology(t *testing.T) {
	h := Guard(panicHandler{}, zap.NewNop())
	reply := h.Handle(context.Background(), &Request{Text: "hi"})
	if reply.Decision.Branch != "ERROR" {
		t.Errorf("branch = %s, want ERROR", reply.Decision.Branch)
	}
	if reply.Decision.Error == "" {
		t.Error("decision should carry the panic message")
	}
	if !strings.Contains(reply.Text, "sorry") {
		t.Errorf("reply %q should be an apology", reply.Text)
	}
}

func TestExtractSymptoms(t *testing.T) {
	labels := extractSymptoms("I have chest pain and feel dizzy")
	want := map[string]bool{"chest pain": true, "dizziness": true, "pain": true}
	for _, l := range labels {
		if !want[l] {
			t.Errorf("unexpected label %q", l)
		}
	}
	if len(labels) < 2 {
		t.Errorf("labels = %v, want chest pain and dizziness at least", labels)
	}
	if got := extractSymptoms("just checking in, all good"); len(got) != 0 {
		t.Errorf("labels = %v, want none", got)
	}
}

func TestExtractSeverity(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantNil bool
	}{
		{"my pain is 7 out of 10", 7, false},
		{"it's an 8/10", 8, false},
		{"severity 3 today", 3, false},
		{"it hurts a lot", 0, true},
	}
	for _, tt := range tests {
		got := extractSeverity(tt.text)
		if tt.wantNil {
			if got != nil {
				t.Errorf("extractSeverity(%q) = %d, want nil", tt.text, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("extractSeverity(%q) = %v, want %d", tt.text, got, tt.want)
		}
	}
}

func TestExtractFever(t *testing.T) {
	if got := extractFever("I have a fever of 101.8"); got == nil || *got != 101.8 {
		t.Errorf("got %v, want 101.8", got)
	}
	if got := extractFever("my temperature is 99.6 this morning"); got == nil || *got != 99.6 {
		t.Errorf("got %v, want 99.6", got)
	}
	if got := extractFever("running 101.5F since last night"); got == nil || *got != 101.5 {
		t.Errorf("got %v, want 101.5", got)
	}
	if got := extractFever("temperature was 102 degrees"); got == nil || *got != 102 {
		t.Errorf("got %v, want 102", got)
	}
	// No number means the fever rules never fire.
	if got := extractFever("I think I have a fever"); got != nil {
		t.Errorf("got %v, want nil without a number", got)
	}
	if got := extractFever("the reading was 102"); got != nil {
		t.Errorf("got %v, want nil without a fever mention", got)
	}
	// Digits inside a longer run are not a reading: an 8-digit patient
	// id must never register as a temperature.
	if got := extractFever("I have a fever, my patient id is 10004235"); got != nil {
		t.Errorf("got %v, want nil: no temperature was stated", got)
	}
}
