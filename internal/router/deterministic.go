package router

import (
	"fmt"
	"regexp"
	"strings"
)

// patientIDPattern matches the 8-digit medical record number patients
// read out or type.
var patientIDPattern = regexp.MustCompile(`\b(\d{8})\b`)

// extractPatientID returns the first 8-digit token in text, or "".
func extractPatientID(text string) string {
	return patientIDPattern.FindString(text)
}

// Keyword tables for the deterministic path. Order is the contract:
// appointment wins even when symptom words co-occur.
var (
	appointmentKeywords = []string{
		"schedule", "reschedule", "cancel", "appointment", "visit", "doctor", "booking",
	}
	symptomKeywords = []string{
		"pain", "fever", "dizz", "breath", "fatigue",
	}
	medicationKeywords = []string{
		"medication", "medicine", "pill", "dose", "prescription", "drug", "tablet",
	}
	caregiverKeywords = []string{
		"caregiver", "summary", "how is my", "update on", "my mother", "my father",
		"my wife", "my husband", "my son", "my daughter",
	}
)

// classifyKeywords is the ordered keyword fallback. Same text always
// yields the same intent.
func classifyKeywords(text string) (Intent, string) {
	lowered := strings.ToLower(text)

	if kw, ok := matchAny(lowered, appointmentKeywords); ok {
		return IntentAppointment, fmt.Sprintf("keyword match: %q", kw)
	}
	if kw, ok := matchAny(lowered, symptomKeywords); ok {
		return IntentFollowup, fmt.Sprintf("keyword match: %q", kw)
	}
	if kw, ok := matchAny(lowered, medicationKeywords); ok {
		return IntentMedication, fmt.Sprintf("keyword match: %q", kw)
	}
	if kw, ok := matchAny(lowered, caregiverKeywords); ok {
		return IntentCaregiver, fmt.Sprintf("keyword match: %q", kw)
	}
	return IntentHelp, "no keyword matched"
}

func matchAny(lowered string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return kw, true
		}
	}
	return "", false
}
