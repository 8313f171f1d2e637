package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/eval/template"
	"github.com/carelink/triage-router/internal/llm"
)

// Intent selects which domain handler takes the turn.
type Intent string

const (
	IntentAppointment Intent = "appointment"
	IntentFollowup    Intent = "followup"
	IntentMedication  Intent = "medication"
	IntentCaregiver   Intent = "caregiver"
	IntentHelp        Intent = "help"
)

// validIntents is the closed enumeration; anything else from the model
// is coerced to help.
var validIntents = map[Intent]bool{
	IntentAppointment: true,
	IntentFollowup:    true,
	IntentMedication:  true,
	IntentCaregiver:   true,
	IntentHelp:        true,
}

// Result is a routing decision for one turn.
type Result struct {
	Intent    Intent `json:"intent"`
	PatientID string `json:"patient_id,omitempty"`
	PathTaken string `json:"path_taken"` // "llm" or "keyword"
	Reasoning string `json:"reasoning"`
}

// Router classifies an utterance into an intent and resolves the
// patient identifier. The model path is tried first; the keyword path
// is the deterministic fallback, so routing never fails a turn.
type Router struct {
	invoker        *llm.Invoker
	templateEngine *template.Engine
	logger         *zap.Logger
}

// New creates a router. invoker may have zero usable providers; the
// router then always takes the keyword path.
func New(invoker *llm.Invoker, logger *zap.Logger) *Router {
	return &Router{
		invoker:        invoker,
		templateEngine: template.NewEngine(),
		logger:         logger,
	}
}

// Route classifies text. knownPatientID is the identifier carried over
// from earlier turns, or empty. Route never returns an error: when the
// model path is unusable or answers help, the keyword path decides.
func (r *Router) Route(ctx context.Context, text, knownPatientID string) *Result {
	// The 8-digit extraction runs on every turn regardless of which
	// classification path wins.
	patientID := extractPatientID(text)
	if patientID == "" {
		patientID = knownPatientID
	}

	if r.invoker != nil && r.invoker.Usable() {
		if intent, reasoning, ok := r.classifyLLM(ctx, text); ok && intent != IntentHelp {
			r.logger.Info("routing decision",
				zap.String("intent", string(intent)),
				zap.String("path", "llm"),
				zap.String("patient_id", patientID),
			)
			return &Result{
				Intent:    intent,
				PatientID: patientID,
				PathTaken: "llm",
				Reasoning: reasoning,
			}
		}
		// help from the model is low confidence, not final; the
		// keyword tables get the last word.
	}

	intent, reasoning := classifyKeywords(text)
	r.logger.Info("routing decision",
		zap.String("intent", string(intent)),
		zap.String("path", "keyword"),
		zap.String("patient_id", patientID),
	)
	return &Result{
		Intent:    intent,
		PatientID: patientID,
		PathTaken: "keyword",
		Reasoning: reasoning,
	}
}
