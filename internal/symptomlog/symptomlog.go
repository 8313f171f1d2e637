// Package symptomlog records reported symptoms append-only and serves
// the rolling-window queries behind trend and escalation decisions.
package symptomlog

import (
	"context"
	"sort"
	"time"
)

// Entry is one logged symptom report. Severity is nil when the patient
// gave no number.
type Entry struct {
	TS        time.Time `json:"ts"`
	PatientID string    `json:"patient_id"`
	Symptom   string    `json:"symptom"`
	Severity  *int      `json:"severity,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// Trend aggregates one symptom over a window: how often it was
// reported and the average of the severities that carried a number.
type Trend struct {
	Symptom     string
	Count       int
	AvgSeverity float64
}

// Store is the append-only persistence contract. Entries are never
// updated or deleted.
type Store interface {
	Append(ctx context.Context, e Entry) error

	// Recent returns the patient's entries whose timestamp falls
	// inside the trailing window, oldest first.
	Recent(ctx context.Context, patientID string, window time.Duration) ([]Entry, error)

	// Trends summarizes the patient's window per symptom, most
	// frequent first.
	Trends(ctx context.Context, patientID string, window time.Duration) ([]Trend, error)
}

// ComputeTrends aggregates entries into per-symptom trends, most
// frequent first, ties broken alphabetically for stable output.
func ComputeTrends(entries []Entry) []Trend {
	type acc struct {
		count    int
		sevSum   int
		sevCount int
	}
	byName := make(map[string]*acc)
	for _, e := range entries {
		a := byName[e.Symptom]
		if a == nil {
			a = &acc{}
			byName[e.Symptom] = a
		}
		a.count++
		if e.Severity != nil {
			a.sevSum += *e.Severity
			a.sevCount++
		}
	}

	out := make([]Trend, 0, len(byName))
	for name, a := range byName {
		t := Trend{Symptom: name, Count: a.count}
		if a.sevCount > 0 {
			t.AvgSeverity = float64(a.sevSum) / float64(a.sevCount)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symptom < out[j].Symptom
	})
	return out
}
