package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/llm"
	"github.com/carelink/triage-router/internal/records"
	"github.com/carelink/triage-router/internal/triage"
)

// medication question intents.
const (
	medMissedDose       = "missed_dose"
	medDoubleDose       = "double_dose"
	medSideEffect       = "side_effect"
	medInteractionCheck = "interaction_check"
	medInstruction      = "instruction"
	medContraindication = "contraindication"
	medGeneral          = "general"
)

var medIntents = map[string]bool{
	medMissedDose:       true,
	medDoubleDose:       true,
	medSideEffect:       true,
	medInteractionCheck: true,
	medInstruction:      true,
	medContraindication: true,
	medGeneral:          true,
}

const medIntentPrompt = `Classify this medication question into exactly one category:
missed_dose, double_dose, side_effect, interaction_check, instruction, contraindication, general.

Respond with ONLY the category word.

Question: %s`

const medRiskPrompt = `Rate the safety risk of this medication question as exactly one word: RED, ORANGE, or GREEN.
RED means possible harm already done or imminent (overdose, double dose, dangerous combination taken).
ORANGE means a mistake that needs a pharmacist's attention soon.
GREEN means routine guidance.

Question: %s`

// overdosePattern catches numeric overdose phrasing ("took three
// pills", "took 2 doses") so the deterministic risk path escalates it
// the same way the model path does.
var overdosePattern = regexp.MustCompile(`\b(?:took|taken|swallowed)\b.{0,30}\b(?:two|three|four|five|\d+)\s+(?:pills?|doses?|tablets?|capsules?)\b`)

// Medication answers prescription questions from the drug knowledge
// base, with a risk banner when the question itself signals danger.
type Medication struct {
	store   records.Store
	invoker *llm.Invoker
	logger  *zap.Logger
}

// NewMedication builds the medication handler.
func NewMedication(store records.Store, invoker *llm.Invoker, logger *zap.Logger) *Medication {
	return &Medication{store: store, invoker: invoker, logger: logger}
}

func (h *Medication) Name() string { return "medication" }

func (h *Medication) Handle(ctx context.Context, req *Request) *Reply {
	if req.PatientID == "" {
		return h.reply("NEED_ID", needIDText, triage.Green, nil)
	}

	if _, err := h.store.Patient(ctx, req.PatientID); errors.Is(err, records.ErrNotFound) {
		return h.reply("NOT_FOUND", notFoundText, triage.Green, nil)
	} else if err != nil {
		return errorReply(h.Name(), err)
	}

	prescriptions, err := h.store.Prescriptions(ctx, req.PatientID)
	if err != nil && !errors.Is(err, records.ErrNotFound) {
		return errorReply(h.Name(), err)
	}
	if len(prescriptions) == 0 {
		return h.reply("NO_PRESCRIPTIONS",
			"I don't see any active prescriptions on file for you. If you were expecting one, please call the clinic so we can straighten that out.",
			triage.Green, nil)
	}

	intent := h.classifyIntent(ctx, req.Text)
	tier := h.scoreRisk(ctx, req.Text, intent)

	body, interactions := h.adviceText(ctx, intent, prescriptions)
	var parts []string
	if banner := riskBanner(tier); banner != "" {
		parts = append(parts, banner)
	}
	if interactions > 1 {
		parts = append(parts, fmt.Sprintf("You take %d medications that can interact, so please read all of the notes below.", interactions))
	}
	parts = append(parts, body)

	return h.reply("ADVICE", strings.Join(parts, "\n\n"), tier, map[string]interface{}{
		"question_intent": intent,
		"prescriptions":   len(prescriptions),
	})
}

// classifyIntent is model-assisted with a keyword fallback.
func (h *Medication) classifyIntent(ctx context.Context, text string) string {
	if h.invoker != nil && h.invoker.Usable() {
		result, err := h.invoker.Invoke(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(medIntentPrompt, text)},
		}, llm.Options{Temperature: 0.0})
		if err == nil && result.Success {
			word := strings.ToLower(strings.TrimSpace(result.Text))
			if medIntents[word] {
				return word
			}
			h.logger.Warn("medication intent outside enum",
				zap.String("provider", result.Provider),
				zap.String("reply", word))
		}
	}
	return keywordMedIntent(text)
}

func keywordMedIntent(text string) string {
	lowered := strings.ToLower(text)
	switch {
	case overdosePattern.MatchString(lowered) || containsAny(lowered, "double dose", "twice by mistake", "extra dose", "too many"):
		return medDoubleDose
	case containsAny(lowered, "missed", "forgot", "skipped"):
		return medMissedDose
	case containsAny(lowered, "side effect", "making me feel", "react"):
		return medSideEffect
	case containsAny(lowered, "interact", "together", "combine", "at the same time"):
		return medInteractionCheck
	case containsAny(lowered, "how do i take", "how should i take", "with food", "when should i take", "before or after"):
		return medInstruction
	case containsAny(lowered, "avoid", "safe to", "alcohol", "shouldn't take"):
		return medContraindication
	default:
		return medGeneral
	}
}

// scoreRisk asks the model for a single word, then floors the answer
// with the deterministic rule so the tier is never demoted below it.
// Numeric overdose phrasing is RED on the deterministic path too.
func (h *Medication) scoreRisk(ctx context.Context, text, intent string) triage.Tier {
	deterministic := deterministicMedRisk(text, intent)

	if h.invoker != nil && h.invoker.Usable() {
		result, err := h.invoker.Invoke(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(medRiskPrompt, text)},
		}, llm.Options{Temperature: 0.0})
		if err == nil && result.Success {
			switch strings.ToUpper(strings.TrimSpace(result.Text)) {
			case "RED":
				return triage.Max(triage.Red, deterministic)
			case "ORANGE":
				return triage.Max(triage.Orange, deterministic)
			case "GREEN":
				return triage.Max(triage.Green, deterministic)
			}
		}
	}
	return deterministic
}

func deterministicMedRisk(text, intent string) triage.Tier {
	if overdosePattern.MatchString(strings.ToLower(text)) {
		return triage.Red
	}
	switch intent {
	case medDoubleDose:
		return triage.Red
	case medInteractionCheck, medMissedDose:
		return triage.Orange
	default:
		return triage.Green
	}
}

// adviceText builds one intent-specific sentence per active
// prescription, plus the count of interaction warnings for the
// preamble decision.
func (h *Medication) adviceText(ctx context.Context, intent string, prescriptions []records.Prescription) (string, int) {
	var lines []string
	interactions := 0

	for _, p := range prescriptions {
		info, err := h.store.DrugInfo(ctx, p.DrugName)
		if errors.Is(err, records.ErrNotFound) {
			lines = append(lines, fmt.Sprintf("%s (%s): I don't have reference notes for this one, so please check with your pharmacist.", p.DrugName, p.Dose))
			continue
		}
		if err != nil {
			h.logger.Warn("drug knowledge lookup failed",
				zap.String("drug", p.DrugName), zap.Error(err))
			continue
		}

		var advice string
		switch intent {
		case medMissedDose:
			advice = info.MissedDoseAdvice
		case medDoubleDose:
			advice = fmt.Sprintf("taking extra %s is not safe to ignore. %s Contact your pharmacist or poison control now.", info.Name, info.Contraindications)
		case medSideEffect:
			advice = fmt.Sprintf("common side effects are %s.", info.CommonSideEffects)
		case medInteractionCheck:
			advice = fmt.Sprintf("serious interactions: %s.", info.SeriousInteractions)
			interactions++
		case medInstruction:
			advice = info.FoodAdvice
		case medContraindication:
			advice = fmt.Sprintf("avoid: %s.", info.Contraindications)
		default:
			advice = fmt.Sprintf("this is a %s prescribed for %s.", strings.ToLower(info.Class), strings.ToLower(p.Condition))
		}
		lines = append(lines, fmt.Sprintf("%s (%s): %s", p.DrugName, p.Dose, advice))
	}

	return strings.Join(lines, "\n"), interactions
}

func riskBanner(tier triage.Tier) string {
	switch tier {
	case triage.Red:
		return "URGENT: based on what you described, contact your pharmacist, poison control, or emergency services before doing anything else."
	case triage.Orange:
		return "Please speak with your pharmacist or care team today about this."
	default:
		return ""
	}
}

func (h *Medication) reply(branch, text string, tier triage.Tier, params map[string]interface{}) *Reply {
	return &Reply{
		Text: text,
		Decision: Decision{
			Handler: h.Name(),
			Branch:  branch,
			Tier:    tier.String(),
			Params:  params,
		},
	}
}
