package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/llm"
)

// classifyPrompt instructs the model to emit a strict one-field JSON
// object. The priority statement matches the keyword fallback:
// scheduling language always wins over symptom language.
const classifyPrompt = `You route messages from recently discharged patients to exactly one handler.

Classify the message into one of: appointment, followup, medication, caregiver, help.

Priority rules:
- Scheduling language (schedule, reschedule, cancel, confirm a visit) always wins, even when symptoms are also mentioned.
- Symptom reports with no scheduling language are followup.
- Questions about drugs, doses, or prescriptions are medication.
- Requests for a summary of how a patient is doing, made on someone's behalf, are caregiver.
- Anything else is help.

Respond with ONLY a JSON object, no prose:
{"intent": "<one of the five>"}

Message: {{utterance}}`

// classifyLLM asks the invocation layer for an intent. ok is false when
// the chain returned its absence value or the reply was unparseable;
// the caller then falls back to keywords.
func (r *Router) classifyLLM(ctx context.Context, text string) (Intent, string, bool) {
	prompt, err := r.templateEngine.Render(classifyPrompt, map[string]interface{}{
		"utterance": text,
	})
	if err != nil {
		r.logger.Warn("classification prompt render failed", zap.Error(err))
		return IntentHelp, "", false
	}

	result, err := r.invoker.Invoke(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{Temperature: 0.0})
	if err != nil || !result.Success {
		if err != nil && !llm.Unavailable(err) {
			r.logger.Warn("classification invocation failed", zap.Error(err))
		}
		return IntentHelp, "", false
	}

	intent, err := parseIntentJSON(result.Text)
	if err != nil {
		r.logger.Warn("unparseable classification reply",
			zap.String("provider", result.Provider),
			zap.Error(err),
		)
		return IntentHelp, "", false
	}

	return intent, fmt.Sprintf("model classified as %s via %s", intent, result.Provider), true
}

// parseIntentJSON parses the model reply, tolerating fenced code
// blocks, and coerces anything outside the enumeration to help.
func parseIntentJSON(reply string) (Intent, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Some models pad the object with prose; take the outermost braces.
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return IntentHelp, fmt.Errorf("decode intent reply: %w", err)
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(out.Intent)))
	if !validIntents[intent] {
		return IntentHelp, nil
	}
	return intent, nil
}
