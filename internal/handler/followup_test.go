package handler

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	celeval "github.com/carelink/triage-router/internal/eval/cel"
	"github.com/carelink/triage-router/internal/policy"
	"github.com/carelink/triage-router/internal/symptomlog"
)

func newFollowupHandler(t *testing.T, log symptomlog.Store) *Followup {
	t.Helper()
	pol, err := policy.Load("", celeval.NewEvaluator())
	if err != nil {
		t.Fatal(err)
	}
	return NewFollowup(log, noInvoker(), pol, zap.NewNop(), nil)
}

func TestFollowupNeedsPatientID(t *testing.T) {
	log := testLog(t)
	h := newFollowupHandler(t, log)
	reply := h.Handle(context.Background(), &Request{Text: "I have a headache"})
	if reply.Decision.Branch != "NEED_ID" {
		t.Fatalf("branch = %s, want NEED_ID", reply.Decision.Branch)
	}

	entries, err := log.Recent(context.Background(), "", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no entries may be logged without a patient id, got %d", len(entries))
	}
}

func TestFollowupClarifyNoSymptoms(t *testing.T) {
	log := testLog(t)
	h := newFollowupHandler(t, log)
	reply := h.Handle(context.Background(), &Request{Text: "just wanted to say hi", PatientID: "10004235"})
	if reply.Decision.Branch != "CLARIFY" {
		t.Fatalf("branch = %s, want CLARIFY", reply.Decision.Branch)
	}

	entries, err := log.Recent(context.Background(), "10004235", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("clarifying turn must not write log entries, got %d", len(entries))
	}
}

func TestFollowupRedEscalation(t *testing.T) {
	log := testLog(t)
	h := newFollowupHandler(t, log)
	reply := h.Handle(context.Background(), &Request{Text: "I have chest pain", PatientID: "10004235"})
	if reply.Decision.Branch != "RED_ESCALATE" {
		t.Fatalf("branch = %s, want RED_ESCALATE", reply.Decision.Branch)
	}
	if reply.Decision.Tier != "RED" {
		t.Errorf("tier = %s, want RED", reply.Decision.Tier)
	}

	entries, err := log.Recent(context.Background(), "10004235", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("symptoms must still be logged on a RED turn")
	}
}

func TestFollowupOrangeCitesHistory(t *testing.T) {
	log := testLog(t)
	prior := symptomlog.Entry{
		TS: time.Now().Add(-48 * time.Hour), PatientID: "10004235",
		Symptom: "nausea",
	}
	if err := log.Append(context.Background(), prior); err != nil {
		t.Fatal(err)
	}

	h := newFollowupHandler(t, log)
	reply := h.Handle(context.Background(), &Request{Text: "I feel dizzy today", PatientID: "10004235"})
	if reply.Decision.Branch != "ORANGE_CALLBACK" {
		t.Fatalf("branch = %s, want ORANGE_CALLBACK", reply.Decision.Branch)
	}
	if !strings.Contains(reply.Text, "nausea") {
		t.Errorf("callback reply should cite earlier nausea: %q", reply.Text)
	}
}

func TestFollowupGreenAck(t *testing.T) {
	h := newFollowupHandler(t, testLog(t))
	reply := h.Handle(context.Background(), &Request{Text: "a bit of fatigue, severity 2", PatientID: "10004235"})
	if reply.Decision.Branch != "GREEN_ACK" {
		t.Fatalf("branch = %s, want GREEN_ACK", reply.Decision.Branch)
	}
	if reply.Decision.Tier != "GREEN" {
		t.Errorf("tier = %s, want GREEN", reply.Decision.Tier)
	}
}

// GREEN means no rule fired, not no concern: high self-rated severity
// still notifies the provider.
func TestFollowupGreenHighSeverityNotifies(t *testing.T) {
	h := newFollowupHandler(t, testLog(t))
	reply := h.Handle(context.Background(), &Request{Text: "fatigue is 9 out of 10", PatientID: "10004235"})
	if reply.Decision.Branch != "GREEN_NOTIFY" {
		t.Fatalf("branch = %s, want GREEN_NOTIFY", reply.Decision.Branch)
	}
	if !strings.Contains(strings.ToLower(reply.Text), "notifying your provider") {
		t.Errorf("reply should announce provider notification: %q", reply.Text)
	}
}

func TestFollowupLogsSeverity(t *testing.T) {
	log := testLog(t)
	h := newFollowupHandler(t, log)
	h.Handle(context.Background(), &Request{Text: "my incision shows redness, pain is 5 out of 10", PatientID: "10004235"})

	entries, err := log.Recent(context.Background(), "10004235", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected logged entries")
	}
	for _, e := range entries {
		if e.Severity == nil || *e.Severity != 5 {
			t.Errorf("entry %q severity = %v, want 5", e.Symptom, e.Severity)
		}
	}
}

// Extraction falls back to the shared lexicon when every provider
// attempt errors, so the turn still triages deterministically.
func TestFollowupExtractionFallsBackWhenChainExhausted(t *testing.T) {
	pol, err := policy.Load("", celeval.NewEvaluator())
	if err != nil {
		t.Fatal(err)
	}
	h := NewFollowup(testLog(t), failingInvoker(), pol, zap.NewNop(), nil)
	reply := h.Handle(context.Background(), &Request{Text: "I have chest pain", PatientID: "10004235"})
	if reply.Decision.Branch != "RED_ESCALATE" {
		t.Fatalf("branch = %s, want RED_ESCALATE via keyword extraction", reply.Decision.Branch)
	}
}

func TestParseSymptomJSON(t *testing.T) {
	labels, err := parseSymptomJSON("```json\n[\"Chest Pain\", \"dizziness\"]\n```")
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 2 || labels[0] != "chest pain" || labels[1] != "dizziness" {
		t.Errorf("labels = %v", labels)
	}
	if _, err := parseSymptomJSON("not json"); err == nil {
		t.Error("want error for unparseable reply")
	}
}
