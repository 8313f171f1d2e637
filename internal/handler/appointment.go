package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	celeval "github.com/carelink/triage-router/internal/eval/cel"
	"github.com/carelink/triage-router/internal/eval/template"
	"github.com/carelink/triage-router/internal/policy"
	"github.com/carelink/triage-router/internal/records"
	"github.com/carelink/triage-router/internal/triage"
)

// scheduling actions detected from the utterance.
const (
	actionStatus     = "status"
	actionCancel     = "cancel"
	actionReschedule = "reschedule"
	actionGeneral    = "general"
	actionUnknown    = "unknown"
)

const statusTemplate = `You're confirmed, {{patient}}: {{type}} with {{doctor}} on {{humanDate date}}. Is there anything else you'd like to check?`

const offerTemplate = `I can move your {{type}} with {{doctor}}. Here {{plural count "is the opening" "are the openings"}} I found:
{{#each slots}}
- {{humanDate this.Date}} ({{this.Modality}}, {{this.Location}})
{{/each}}
Reply with the one that works and I'll request the change.`

// Appointment handles scheduling turns: status checks, cancellations,
// and reschedules, after triage and the policy gates have had their
// say. Every branch is terminal.
type Appointment struct {
	store  records.Store
	pol    *policy.Policy
	gates  *celeval.Evaluator
	tmpl   *template.Engine
	now    func() time.Time
	logger *zap.Logger
}

// NewAppointment builds the scheduling handler. now is injectable for
// tests and defaults to time.Now when nil.
func NewAppointment(store records.Store, pol *policy.Policy, gates *celeval.Evaluator, logger *zap.Logger, now func() time.Time) *Appointment {
	if now == nil {
		now = time.Now
	}
	return &Appointment{
		store:  store,
		pol:    pol,
		gates:  gates,
		tmpl:   template.NewEngine(),
		now:    now,
		logger: logger,
	}
}

func (h *Appointment) Name() string { return "appointment" }

func (h *Appointment) Handle(ctx context.Context, req *Request) *Reply {
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

	appt, err := h.store.ActiveAppointment(ctx, req.PatientID)
	if errors.Is(err, records.ErrNotFound) {
		return h.reply("NO_APPOINTMENT",
			fmt.Sprintf("%s, I don't see any upcoming appointment on file for you. Would you like help scheduling one?", patient.Name),
			nil)
	}
	if err != nil {
		return errorReply(h.Name(), err)
	}

	// Symptom context attached to a scheduling request escalates
	// before any scheduling logic runs.
	symptoms := extractSymptoms(req.Text)
	tier, matched := triage.Evaluate(triageInput(req.Text, symptoms))
	switch tier {
	case triage.Red:
		r := h.reply("RED_ESCALATE",
			"What you're describing needs urgent attention. Please go to the nearest emergency department now, or call 911. I'm flagging your record for the on-call team — we'll sort the appointment out afterward.",
			map[string]interface{}{"rules": matched, "on_call_flagged": true})
		r.Decision.Tier = tier.String()
		return r
	case triage.Orange:
		r := h.reply("ORANGE_HOLD",
			"I want a nurse to hear about those symptoms today, so I've requested a same-day callback. I've also put a provisional hold on your appointment until you've spoken with them.",
			map[string]interface{}{"rules": matched, "provisional_hold": true})
		r.Decision.Tier = tier.String()
		return r
	}

	action := detectAction(req.Text)

	if gate, blocked, err := h.firstBlockingGate(ctx, patient, appt, req.Text, action); err != nil {
		return errorReply(h.Name(), err)
	} else if blocked {
		return h.reply("POLICY_BLOCKED", gate.Reason, map[string]interface{}{"gate": gate.Name})
	}

	switch action {
	case actionStatus:
		text, err := h.tmpl.Render(statusTemplate, map[string]interface{}{
			"patient": patient.Name,
			"type":    appt.Type,
			"doctor":  appt.Doctor,
			"date":    appt.Date,
		})
		if err != nil {
			return errorReply(h.Name(), err)
		}
		return h.reply("STATUS_OK", text, map[string]interface{}{"appointment_id": appt.ID})

	case actionCancel:
		return h.reply("CANCEL_CONFIRM",
			fmt.Sprintf("I've submitted the cancellation for your %s with %s on %s. You'll get a confirmation shortly — let me know if you'd like to rebook.",
				appt.Type, appt.Doctor, appt.Date.Format("Monday, January 2")),
			map[string]interface{}{"appointment_id": appt.ID})

	case actionReschedule, actionGeneral:
		return h.offerReschedule(ctx, appt)

	default:
		return h.reply("FALLBACK_MENU",
			"I can check your appointment status, cancel it, or find a new time. Which would you like?",
			nil)
	}
}

// offerReschedule applies the business rules: urgent or imminent
// surgical visits are never moved by the assistant; otherwise up to
// MaxAlternatives same-doctor, same-type slots inside the search window
// are offered.
func (h *Appointment) offerReschedule(ctx context.Context, appt *records.Appointment) *Reply {
	hoursUntil := appt.Date.Sub(h.now()).Hours()
	cutoff := float64(h.pol.Appointment.RescheduleCutoffHours)

	if !appt.CanReschedule || strings.EqualFold(appt.Urgency, "high") ||
		(isSurgical(appt.Type) && hoursUntil < cutoff) {
		return h.reply("RESCHEDULE_BLOCKED",
			fmt.Sprintf("Your %s with %s is marked as time-critical, so I can't move it myself. I've asked the scheduling team to call you about alternatives.",
				appt.Type, appt.Doctor),
			map[string]interface{}{"hours_until": int(hoursUntil), "urgency": appt.Urgency})
	}

	from := h.now()
	to := from.AddDate(0, 0, h.pol.Appointment.SlotSearchDays)
	slots, err := h.store.AvailableSlots(ctx, appt.Doctor, appt.Type, from, to)
	if err != nil {
		return errorReply(h.Name(), err)
	}
	if len(slots) > h.pol.Appointment.MaxAlternatives {
		slots = slots[:h.pol.Appointment.MaxAlternatives]
	}

	if len(slots) == 0 {
		return h.reply("RESCHEDULE_OFFER",
			fmt.Sprintf("I couldn't find an opening with %s in the next %d days. The scheduling team will call you with options instead.",
				appt.Doctor, h.pol.Appointment.SlotSearchDays),
			map[string]interface{}{"slot_count": 0})
	}

	text, err := h.tmpl.Render(offerTemplate, map[string]interface{}{
		"type":   appt.Type,
		"doctor": appt.Doctor,
		"count":  len(slots),
		"slots":  slots,
	})
	if err != nil {
		return errorReply(h.Name(), err)
	}
	return h.reply("RESCHEDULE_OFFER", text, map[string]interface{}{"slot_count": len(slots)})
}

// firstBlockingGate evaluates the policy gates in document order and
// returns the first one whose condition holds.
func (h *Appointment) firstBlockingGate(ctx context.Context, patient *records.Patient, appt *records.Appointment, text, action string) (policy.Gate, bool, error) {
	vars := h.gateVars(ctx, patient, appt, text, action)
	for _, gate := range h.pol.Appointment.Gates {
		blocked, err := h.gates.EvalBool(gate.Condition, vars)
		if err != nil {
			return policy.Gate{}, false, fmt.Errorf("gate %s: %w", gate.Name, err)
		}
		if blocked {
			h.logger.Info("policy gate blocked request",
				zap.String("gate", gate.Name),
				zap.String("patient_id", patient.ID),
			)
			return gate, true, nil
		}
	}
	return policy.Gate{}, false, nil
}

// gateVars builds the activation maps the gate conditions see.
func (h *Appointment) gateVars(ctx context.Context, patient *records.Patient, appt *records.Appointment, text, action string) map[string]interface{} {
	consent := false
	if patient.PrimaryCaregiverID != "" {
		if cg, err := h.store.Caregiver(ctx, patient.PrimaryCaregiverID); err == nil {
			consent = cg.ConsentOnFile
		}
	}

	postopMin, postopMax := -1, -1
	if w, ok := h.pol.Appointment.PostOpWindow(appt.Type); ok {
		postopMin, postopMax = w.MinDays, w.MaxDays
	}

	return map[string]interface{}{
		"patient": map[string]interface{}{
			"age":               patient.Age,
			"caregiver_consent": consent,
			"language":          patient.Language,
		},
		"appointment": map[string]interface{}{
			"plan_referral_required": h.pol.Appointment.ReferralRequired(appt.PlanID),
			"telehealth_allowed":     h.pol.Appointment.TelehealthAllowed[appt.Type],
			"is_surgery":             isSurgical(appt.Type),
			"urgency":                strings.ToLower(appt.Urgency),
			"postop_min_days":        postopMin,
			"postop_max_days":        postopMax,
		},
		"request": map[string]interface{}{
			"action":              action,
			"modality":            requestedModality(text),
			"desired_offset_days": desiredOffsetDays(text),
		},
	}
}

func (h *Appointment) reply(branch, text string, params map[string]interface{}) *Reply {
	return &Reply{
		Text: text,
		Decision: Decision{
			Handler: h.Name(),
			Branch:  branch,
			Params:  params,
		},
	}
}

func isSurgical(visitType string) bool {
	t := strings.ToLower(visitType)
	return strings.Contains(t, "surgery") || strings.Contains(t, "surgical")
}

// detectAction picks the scheduling action from the utterance. General
// appointment talk with no action verb still flows into the reschedule
// rules; text with no scheduling vocabulary at all gets the menu.
func detectAction(text string) string {
	lowered := strings.ToLower(text)
	switch {
	case containsAny(lowered, "cancel"):
		return actionCancel
	case containsAny(lowered, "reschedule", "change", "move", "postpone", "different time", "new time", "earlier", "later"):
		return actionReschedule
	case containsAny(lowered, "check", "status", "confirm", "when is", "what time", "do i have"):
		return actionStatus
	case containsAny(lowered, "appointment", "visit", "booking", "doctor", "schedule"):
		return actionGeneral
	default:
		return actionUnknown
	}
}

func containsAny(lowered string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

var (
	inDaysPattern  = regexp.MustCompile(`in\s+(\d{1,2})\s+days?`)
	inWeeksPattern = regexp.MustCompile(`in\s+(\d{1,2})\s+weeks?`)
)

// desiredOffsetDays parses a requested target date as days from now,
// -1 when the utterance names none. The post-op window gate only fires
// on a known value.
func desiredOffsetDays(text string) int {
	lowered := strings.ToLower(text)
	if m := inDaysPattern.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	if m := inWeeksPattern.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v * 7
		}
	}
	if strings.Contains(lowered, "tomorrow") {
		return 1
	}
	if strings.Contains(lowered, "next week") {
		return 7
	}
	if strings.Contains(lowered, "next month") {
		return 30
	}
	return -1
}

// requestedModality detects whether the patient asked for a video
// visit.
func requestedModality(text string) string {
	lowered := strings.ToLower(text)
	if containsAny(lowered, "video", "telehealth", "virtual", "online visit") {
		return "video"
	}
	return "in_person"
}
