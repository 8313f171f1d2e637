package symptomlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sev(v int) *int { return &v }

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "symptoms.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Append(ctx, Entry{PatientID: "10004235", Symptom: "dizziness", Severity: sev(6)}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Recent(ctx, "10004235", 7*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Symptom != "dizziness" || e.Severity == nil || *e.Severity != 6 {
		t.Fatalf("entry = %+v", e)
	}
	if e.TS.IsZero() {
		t.Fatal("append must stamp a timestamp")
	}
}

func TestFileStoreWindowCutoff(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "symptoms.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	old := Entry{TS: time.Now().UTC().Add(-10 * 24 * time.Hour), PatientID: "p1", Symptom: "fatigue", Severity: sev(3)}
	fresh := Entry{TS: time.Now().UTC().Add(-time.Hour), PatientID: "p1", Symptom: "fatigue", Severity: sev(4)}
	for _, e := range []Entry{old, fresh} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(ctx, "p1", 7*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || *got[0].Severity != 4 {
		t.Fatalf("window query returned %+v, want only the fresh entry", got)
	}

	// Widening the window brings the old entry back.
	got, err = store.Recent(ctx, "p1", 14*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
}

func TestFileStoreIsolatesPatients(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "symptoms.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Append(ctx, Entry{PatientID: "p1", Symptom: "pain"})
	_ = store.Append(ctx, Entry{PatientID: "p2", Symptom: "fever"})

	got, err := store.Recent(ctx, "p2", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Symptom != "fever" {
		t.Fatalf("got %+v", got)
	}
}

func TestComputeTrends(t *testing.T) {
	entries := []Entry{
		{Symptom: "pain", Severity: sev(6)},
		{Symptom: "pain", Severity: sev(8)},
		{Symptom: "pain"},
		{Symptom: "dizziness", Severity: sev(4)},
	}
	trends := ComputeTrends(entries)
	if len(trends) != 2 {
		t.Fatalf("trends = %d, want 2", len(trends))
	}
	if trends[0].Symptom != "pain" || trends[0].Count != 3 {
		t.Fatalf("top trend = %+v", trends[0])
	}
	// Average ignores entries without a number.
	if trends[0].AvgSeverity != 7 {
		t.Fatalf("avg severity = %v, want 7", trends[0].AvgSeverity)
	}
	if trends[1].Symptom != "dizziness" || trends[1].AvgSeverity != 4 {
		t.Fatalf("second trend = %+v", trends[1])
	}
}
