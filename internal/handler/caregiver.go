package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/eval/template"
	"github.com/carelink/triage-router/internal/policy"
	"github.com/carelink/triage-router/internal/records"
	"github.com/carelink/triage-router/internal/symptomlog"
)

const summaryTemplate = `Here's the {{window}}-day summary for {{patient}} (risk level: {{risk}}).
{{#if trends}}
Most frequent symptoms:
{{#each trends}}
- {{this.Symptom}}: {{this.Count}} {{plural this.Count "report" "reports"}}, average severity {{this.AvgSeverity}}
{{/each}}
{{else}}
No symptoms were reported in this period.
{{/if}}
Medication: {{taken}} {{plural taken "dose" "doses"}} taken, {{missed}} missed.
{{#if concern}}{{concern}}{{/if}}`

// Caregiver produces consented recovery summaries for a patient's
// designated caregiver.
type Caregiver struct {
	store  records.Store
	log    symptomlog.Store
	pol    *policy.Policy
	tmpl   *template.Engine
	logger *zap.Logger
}

// NewCaregiver builds the caregiver-summary handler.
func NewCaregiver(store records.Store, log symptomlog.Store, pol *policy.Policy, logger *zap.Logger) *Caregiver {
	return &Caregiver{
		store:  store,
		log:    log,
		pol:    pol,
		tmpl:   template.NewEngine(),
		logger: logger,
	}
}

func (h *Caregiver) Name() string { return "caregiver" }

func (h *Caregiver) Handle(ctx context.Context, req *Request) *Reply {
	if req.PatientID == "" {
		return h.reply("NEED_ID", needIDText, nil)
	}

	patient, err := h.store.Patient(ctx, req.PatientID)
	if errors.Is(err, records.ErrNotFound) {
		return h.reply("NOT_FOUND", notFoundText, nil)
	}
	if err != nil {
		return errorReply(h.Name(), err)
	}

	if patient.PrimaryCaregiverID == "" {
		return h.reply("NO_CAREGIVER",
			fmt.Sprintf("There's no designated caregiver on file for %s, so I can't share a summary. The clinic can add one with the patient's consent.", patient.Name),
			nil)
	}

	caregiver, err := h.store.Caregiver(ctx, patient.PrimaryCaregiverID)
	if errors.Is(err, records.ErrNotFound) {
		return h.reply("NO_CAREGIVER",
			fmt.Sprintf("The caregiver listed for %s isn't in our records, so I can't share a summary. Please call the clinic to sort this out.", patient.Name),
			nil)
	}
	if err != nil {
		return errorReply(h.Name(), err)
	}

	// Consent is checked before any trend computation happens.
	if !caregiver.ConsentOnFile {
		return h.reply("CONSENT_REFUSED",
			fmt.Sprintf("I'm sorry, but I can't share %s's health information: there's no caregiver consent on file. The patient can grant it through the clinic.", patient.Name),
			map[string]interface{}{"caregiver_id": caregiver.ID, "consent": false})
	}

	text, summary, err := h.summarize(ctx, patient)
	if err != nil {
		return errorReply(h.Name(), err)
	}
	return h.reply("SUMMARY", text, summary)
}

// SummarizeAll renders a summary for every patient the caregiver is
// designated for, skipping any without consent. It backs the weekly
// batch path and returns patient id → summary text.
func (h *Caregiver) SummarizeAll(ctx context.Context, caregiverID string) (map[string]string, error) {
	caregiver, err := h.store.Caregiver(ctx, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("lookup caregiver %s: %w", caregiverID, err)
	}
	if !caregiver.ConsentOnFile {
		return nil, fmt.Errorf("caregiver %s has no consent on file", caregiverID)
	}

	patients, err := h.store.PatientsForCaregiver(ctx, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("list patients for caregiver %s: %w", caregiverID, err)
	}

	out := make(map[string]string, len(patients))
	for i := range patients {
		text, _, err := h.summarize(ctx, &patients[i])
		if err != nil {
			h.logger.Warn("batch summary failed",
				zap.String("patient_id", patients[i].ID), zap.Error(err))
			continue
		}
		out[patients[i].ID] = text
	}
	return out, nil
}

// summarize aggregates the rolling window and renders the fixed
// template.
func (h *Caregiver) summarize(ctx context.Context, patient *records.Patient) (string, map[string]interface{}, error) {
	window := time.Duration(h.pol.Caregiver.WindowDays) * 24 * time.Hour

	entries, err := h.log.Recent(ctx, patient.ID, window)
	if err != nil {
		return "", nil, fmt.Errorf("symptom history: %w", err)
	}
	trends := symptomlog.ComputeTrends(entries)
	if len(trends) > 3 {
		trends = trends[:3]
	}

	taken, missed, err := h.store.Adherence(ctx, patient.ID)
	if err != nil && !errors.Is(err, records.ErrNotFound) {
		return "", nil, fmt.Errorf("adherence: %w", err)
	}

	avg := averageSeverity(entries)
	risk := h.riskLevel(avg, missed)

	concern := ""
	switch risk {
	case "HIGH":
		concern = "These numbers are concerning. Please encourage them to contact the care team today."
	case "MODERATE":
		concern = "Worth keeping a close eye on this week."
	}

	text, err := h.tmpl.Render(summaryTemplate, map[string]interface{}{
		"window":  h.pol.Caregiver.WindowDays,
		"patient": patient.Name,
		"risk":    risk,
		"trends":  trends,
		"taken":   taken,
		"missed":  missed,
		"concern": concern,
	})
	if err != nil {
		return "", nil, fmt.Errorf("render summary: %w", err)
	}

	return text, map[string]interface{}{
		"risk":         risk,
		"avg_severity": avg,
		"missed_doses": missed,
		"taken_doses":  taken,
		"symptoms":     len(entries),
	}, nil
}

// riskLevel applies the two caregiver thresholds.
func (h *Caregiver) riskLevel(avgSeverity float64, missed int) string {
	p := h.pol.Caregiver
	switch {
	case avgSeverity >= p.HighAvgSeverity || missed >= p.HighMissedDoses:
		return "HIGH"
	case avgSeverity >= p.ModerateAvgSeverity || missed >= p.ModerateMissedDoses:
		return "MODERATE"
	default:
		return "LOW"
	}
}

func averageSeverity(entries []symptomlog.Entry) float64 {
	sum, n := 0, 0
	for _, e := range entries {
		if e.Severity != nil {
			sum += *e.Severity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func (h *Caregiver) reply(branch, text string, params map[string]interface{}) *Reply {
	return &Reply{
		Text: text,
		Decision: Decision{
			Handler: h.Name(),
			Branch:  branch,
			Params:  params,
		},
	}
}
