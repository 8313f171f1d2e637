package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/llm"
	"github.com/carelink/triage-router/internal/policy"
	"github.com/carelink/triage-router/internal/symptomlog"
	"github.com/carelink/triage-router/internal/triage"
)

const symptomExtractPrompt = `Extract the symptoms a recovering patient reports in the message below.
Respond with ONLY a JSON array of short lower-case symptom labels, for example ["chest pain", "dizziness"].
Respond with [] if no symptom is mentioned.

Message: %s`

// Followup handles symptom check-ins: extract, log, triage, reply.
type Followup struct {
	log     symptomlog.Store
	invoker *llm.Invoker
	pol     *policy.Policy
	now     func() time.Time
	logger  *zap.Logger
}

// NewFollowup builds the check-in handler. now defaults to time.Now
// when nil.
func NewFollowup(log symptomlog.Store, invoker *llm.Invoker, pol *policy.Policy, logger *zap.Logger, now func() time.Time) *Followup {
	if now == nil {
		now = time.Now
	}
	return &Followup{log: log, invoker: invoker, pol: pol, now: now, logger: logger}
}

func (h *Followup) Name() string { return "followup" }

func (h *Followup) Handle(ctx context.Context, req *Request) *Reply {
	if req.PatientID == "" {
		return h.reply("NEED_ID", needIDText, triage.Green, nil)
	}

	symptoms := h.extract(ctx, req.Text)
	if len(symptoms) == 0 {
		return h.reply("CLARIFY",
			"I want to make sure I understand. Which symptom is bothering you, and how severe is it on a scale of 0 to 10?",
			triage.Green, nil)
	}

	severity := extractSeverity(req.Text)

	// Prior entries are read before this turn's are appended so the
	// callback reply can cite what was already on file.
	var prior []symptomlog.Entry
	window := time.Duration(h.pol.Followup.HistoryWindowDays) * 24 * time.Hour
	if entries, err := h.log.Recent(ctx, req.PatientID, window); err == nil {
		prior = entries
	} else {
		h.logger.Warn("symptom history unavailable", zap.Error(err))
	}

	for _, s := range symptoms {
		entry := symptomlog.Entry{
			TS:        h.now(),
			PatientID: req.PatientID,
			Symptom:   s,
			Severity:  severity,
			Note:      req.Text,
		}
		if err := h.log.Append(ctx, entry); err != nil {
			return errorReply(h.Name(), err)
		}
	}

	tier, matched := triage.Evaluate(triageInput(req.Text, symptoms))
	params := map[string]interface{}{
		"symptoms": symptoms,
		"rules":    matched,
	}
	if severity != nil {
		params["severity"] = *severity
	}

	switch tier {
	case triage.Red:
		return h.reply("RED_ESCALATE",
			"Please don't wait on this. Go to the nearest emergency department now, or call 911. I've alerted the on-call team about what you told me.",
			tier, params)

	case triage.Orange:
		text := "Thanks for telling me. A nurse will call you back today to go over this."
		if cited := citeHistory(prior, symptoms); cited != "" {
			text += " " + cited
		}
		return h.reply("ORANGE_CALLBACK", text, tier, params)

	default:
		if severity != nil && *severity >= h.pol.Followup.NotifySeverity {
			return h.reply("GREEN_NOTIFY",
				fmt.Sprintf("I've logged that at %d out of 10. That's significant even though it doesn't meet our urgent criteria, so I'm notifying your provider today. If it gets worse, call us right away.", *severity),
				tier, params)
		}
		return h.reply("GREEN_ACK",
			"Thanks for checking in — I've added that to your recovery log. Keep an eye on it, and tell me if anything changes or gets worse.",
			tier, params)
	}
}

// extract tries the model first and falls back to the shared lexicon.
// Either way the labels feed the same triage evaluator.
func (h *Followup) extract(ctx context.Context, text string) []string {
	if h.invoker != nil && h.invoker.Usable() {
		result, err := h.invoker.Invoke(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(symptomExtractPrompt, text)},
		}, llm.Options{Temperature: 0.0})
		if err != nil {
			if !llm.Unavailable(err) {
				h.logger.Warn("symptom extraction invocation failed", zap.Error(err))
			}
		} else if result.Success {
			if labels, perr := parseSymptomJSON(result.Text); perr == nil {
				return labels
			}
			h.logger.Warn("unparseable symptom extraction reply",
				zap.String("provider", result.Provider))
		}
	}
	return extractSymptoms(text)
}

func parseSymptomJSON(reply string) ([]string, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start := strings.Index(cleaned, "["); start >= 0 {
		if end := strings.LastIndex(cleaned, "]"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var labels []string
	if err := json.Unmarshal([]byte(cleaned), &labels); err != nil {
		return nil, fmt.Errorf("decode symptom reply: %w", err)
	}
	for i, l := range labels {
		labels[i] = strings.ToLower(strings.TrimSpace(l))
	}
	return labels, nil
}

// citeHistory mentions symptoms already on file that are not part of
// this turn's report.
func citeHistory(prior []symptomlog.Entry, current []string) string {
	currentSet := make(map[string]bool, len(current))
	for _, s := range current {
		currentSet[s] = true
	}

	var others []string
	seen := make(map[string]bool)
	for _, e := range prior {
		if currentSet[e.Symptom] || seen[e.Symptom] {
			continue
		}
		seen[e.Symptom] = true
		others = append(others, e.Symptom)
	}
	if len(others) == 0 {
		return ""
	}
	return fmt.Sprintf("I'll also mention the %s you reported earlier this week so they have the full picture.",
		strings.Join(others, " and "))
}

func (h *Followup) reply(branch, text string, tier triage.Tier, params map[string]interface{}) *Reply {
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
