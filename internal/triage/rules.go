package triage

import "strings"

// Input carries everything the evaluator looks at for one utterance.
// Severity and FeverF are nil when the patient gave no number; the
// fever and severe-pain rules only fire on a known numeric value.
type Input struct {
	Symptoms []string
	Severity *int
	FeverF   *float64
	Text     string // lower-cased raw utterance
}

// rule is one row of the shared escalation table.
type rule struct {
	name     string
	patterns []string
}

// The escalation table below is the single source of truth for both the
// appointment and follow-up paths. A symptom description must escalate
// identically regardless of which handler sees it first.
var redRules = []rule{
	{"chest_pain", []string{"chest pain", "pain in my chest", "chest tightness", "tightness in my chest"}},
	{"shortness_of_breath", []string{"shortness of breath", "short of breath", "trouble breathing"}},
	{"wound_dehiscence", []string{"incision opening", "wound opening", "dehiscence", "yellow drainage", "pus", "green drainage", "greenish fluid", "ooze", "warm to the touch", "warm", "swelling"}},
	{"fever_high", []string{"fever"}},
	{"severe_pain", []string{"pain"}},
	{"neuro_deficit", []string{"numbness", "weakness", "slurred speech"}},
	{"syncope", []string{"fainted", "syncope"}},
}

var orangeRules = []rule{
	{"moderate_pain", []string{"pain"}},
	{"fever_low", []string{"fever"}},
	{"hyperglycemia", []string{"glucose", "blood sugar"}},
	{"wound_redness", []string{"redness", "swelling"}},
	{"dizziness", []string{"dizzy", "dizziness"}},
}

const (
	feverRedThreshold = 101.5
	feverOrangeLow    = 99.5
	feverOrangeHigh   = 101.4
	severePainMin     = 8
	moderatePainLow   = 5
	moderatePainHigh  = 7
)

// Evaluate classifies a symptom report. Rules are checked in table
// order, RED before ORANGE, and the first match wins. An empty report
// is GREEN.
func Evaluate(in Input) (Tier, []string) {
	if len(in.Symptoms) == 0 && strings.TrimSpace(in.Text) == "" {
		return Green, nil
	}

	blob := strings.ToLower(strings.Join(in.Symptoms, " "))
	if in.Text != "" {
		blob += " " + strings.ToLower(in.Text)
	}

	for _, r := range redRules {
		if !matchAny(blob, r.patterns) {
			continue
		}
		switch r.name {
		case "fever_high":
			if in.FeverF != nil && *in.FeverF >= feverRedThreshold {
				return Red, []string{r.name}
			}
		case "severe_pain":
			if in.Severity != nil && *in.Severity >= severePainMin {
				return Red, []string{r.name}
			}
		default:
			return Red, []string{r.name}
		}
	}

	for _, r := range orangeRules {
		if !matchAny(blob, r.patterns) {
			continue
		}
		switch r.name {
		case "moderate_pain":
			if in.Severity != nil && *in.Severity >= moderatePainLow && *in.Severity <= moderatePainHigh {
				return Orange, []string{r.name}
			}
		case "fever_low":
			if in.FeverF != nil && *in.FeverF >= feverOrangeLow && *in.FeverF <= feverOrangeHigh {
				return Orange, []string{r.name}
			}
		default:
			return Orange, []string{r.name}
		}
	}

	return Green, nil
}

func matchAny(blob string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(blob, p) {
			return true
		}
	}
	return false
}
