package handler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/carelink/triage-router/internal/triage"
)

// symptomLexicon maps utterance phrases to the canonical labels the
// triage table and the symptom log share. Order matters only for
// stable output; every matching label is extracted.
var symptomLexicon = []struct {
	label    string
	patterns []string
}{
	{"chest pain", []string{"chest pain", "pain in my chest", "chest tightness", "tightness in my chest"}},
	{"shortness of breath", []string{"shortness of breath", "short of breath", "trouble breathing", "breathless"}},
	{"wound drainage", []string{"drainage", "pus", "oozing", "incision opening", "wound opening"}},
	{"wound redness", []string{"redness", "red around", "swelling", "swollen"}},
	{"fever", []string{"fever", "feverish", "temperature"}},
	{"pain", []string{"pain", "hurts", "aching", "sore"}},
	{"dizziness", []string{"dizzy", "dizziness", "lightheaded", "light-headed"}},
	{"nausea", []string{"nausea", "nauseous", "vomit", "throwing up"}},
	{"fatigue", []string{"fatigue", "exhausted", "tired", "no energy"}},
	{"numbness", []string{"numb", "numbness", "tingling"}},
	{"weakness", []string{"weakness", "weak"}},
	{"high blood sugar", []string{"blood sugar", "glucose", "hyperglycemia"}},
	{"fainting", []string{"fainted", "fainting", "passed out", "syncope"}},
	{"headache", []string{"headache"}},
}

var (
	// severityPattern matches "7/10", "7 out of 10", "severity 7",
	// "pain is 7", "pain level 7".
	severityPattern = regexp.MustCompile(`\b(\d{1,2})\s*(?:/|out of)\s*10\b|\b(?:severity|pain)(?:\s+(?:is|of|level|at))?\s+(\d{1,2})\b`)

	// feverPattern matches a plausible Fahrenheit reading like "102",
	// "101.5", "101.5F", "102 degrees". The reading must end at a word
	// boundary or a degree marker so digits inside a longer run (a
	// patient id, a phone number) never parse as a temperature.
	feverPattern = regexp.MustCompile(`\b(9\d(?:\.\d+)?|10\d(?:\.\d+)?)(?:\s*(?:°\s*f|f|degrees)\b|\b)`)
)

// extractSymptoms returns canonical symptom labels found in text.
func extractSymptoms(text string) []string {
	lowered := strings.ToLower(text)
	var labels []string
	seen := make(map[string]bool)
	for _, entry := range symptomLexicon {
		for _, p := range entry.patterns {
			if strings.Contains(lowered, p) {
				if !seen[entry.label] {
					seen[entry.label] = true
					labels = append(labels, entry.label)
				}
				break
			}
		}
	}
	return labels
}

// extractSeverity pulls an explicit 0-10 severity from text, nil when
// the patient gave no number.
func extractSeverity(text string) *int {
	m := severityPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 10 {
		return nil
	}
	return &v
}

// extractFever pulls a Fahrenheit temperature from text when the
// utterance mentions a fever, nil otherwise. The fever escalation rules
// only fire on a known numeric value.
func extractFever(text string) *float64 {
	lowered := strings.ToLower(text)
	if !strings.Contains(lowered, "fever") && !strings.Contains(lowered, "temperature") && !strings.Contains(lowered, "temp ") {
		return nil
	}
	m := feverPattern.FindStringSubmatch(lowered)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// triageInput assembles the shared evaluator input for an utterance.
// The appointment and follow-up paths both go through here so a
// symptom description escalates identically in either one.
func triageInput(text string, symptoms []string) triage.Input {
	return triage.Input{
		Symptoms: symptoms,
		Severity: extractSeverity(text),
		FeverF:   extractFever(text),
		Text:     strings.ToLower(text),
	}
}
