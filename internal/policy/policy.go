package policy

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	celeval "github.com/carelink/triage-router/internal/eval/cel"
)

// Gate is a declarative policy check evaluated before any appointment
// change is offered. Condition is a CEL expression over the patient,
// appointment, and request activation maps; when it evaluates true the
// gate blocks the request and Reason is spoken to the patient.
type Gate struct {
	Name      string `mapstructure:"name"`
	Condition string `mapstructure:"condition"`
	Reason    string `mapstructure:"reason"`
}

// Window is an inclusive day range measured from today.
type Window struct {
	MinDays int `mapstructure:"min_days"`
	MaxDays int `mapstructure:"max_days"`
}

// AppointmentPolicy governs scheduling changes.
type AppointmentPolicy struct {
	// RescheduleCutoffHours blocks changes to high-urgency or surgical
	// appointments starting this close to the visit.
	RescheduleCutoffHours int `mapstructure:"reschedule_cutoff_hours"`

	// SlotSearchDays and MaxAlternatives bound the reschedule offer.
	SlotSearchDays  int `mapstructure:"slot_search_days"`
	MaxAlternatives int `mapstructure:"max_alternatives"`

	// ReferralRequiredPlans lists payer plan IDs that need provider
	// approval before any reschedule.
	ReferralRequiredPlans []string `mapstructure:"referral_required_plans"`

	// TelehealthAllowed maps visit type to whether video is offered.
	TelehealthAllowed map[string]bool `mapstructure:"telehealth_allowed"`

	// PostOpWindows maps surgical visit type to the allowed follow-up
	// window after discharge.
	PostOpWindows map[string]Window `mapstructure:"postop_windows"`

	// Gates run in order; the first one whose condition holds blocks
	// the request.
	Gates []Gate `mapstructure:"gates"`
}

// FollowupPolicy governs symptom check-in behavior.
type FollowupPolicy struct {
	// NotifySeverity is the GREEN-tier severity at or above which the
	// care team is still notified.
	NotifySeverity int `mapstructure:"notify_severity"`

	// HistoryWindowDays bounds the prior-symptom citation in callback
	// replies.
	HistoryWindowDays int `mapstructure:"history_window_days"`
}

// CaregiverPolicy governs summary generation for caregivers.
type CaregiverPolicy struct {
	WindowDays          int     `mapstructure:"window_days"`
	HighAvgSeverity     float64 `mapstructure:"high_avg_severity"`
	HighMissedDoses     int     `mapstructure:"high_missed_doses"`
	ModerateAvgSeverity float64 `mapstructure:"moderate_avg_severity"`
	ModerateMissedDoses int     `mapstructure:"moderate_missed_doses"`
}

// Policy is the full policy document. It is loaded once at startup and
// treated as immutable afterwards.
type Policy struct {
	Appointment AppointmentPolicy `mapstructure:"appointment"`
	Followup    FollowupPolicy    `mapstructure:"followup"`
	Caregiver   CaregiverPolicy   `mapstructure:"caregiver"`
}

// Defaults returns the built-in policy document.
func Defaults() *Policy {
	return &Policy{
		Appointment: AppointmentPolicy{
			RescheduleCutoffHours: 48,
			SlotSearchDays:        14,
			MaxAlternatives:       3,
			ReferralRequiredPlans: []string{"HMO_A"},
			TelehealthAllowed: map[string]bool{
				"Follow-up - Cardiology":    true,
				"Follow-up - Endocrinology": true,
				"Post-op Check":             false,
				"Surgery":                   false,
			},
			PostOpWindows: map[string]Window{
				"Post-op Check": {MinDays: 7, MaxDays: 14},
			},
			Gates: []Gate{
				{
					Name:      "minor_consent",
					Condition: "patient.age < 18 && !patient.caregiver_consent",
					Reason:    "For patients under 18, a caregiver with consent on file must make this request.",
				},
				{
					Name:      "payer_referral",
					Condition: "request.action != 'status' && appointment.plan_referral_required",
					Reason:    "Your insurance plan requires a provider referral before this appointment can be changed. I can connect you with the referrals desk.",
				},
				{
					Name:      "telehealth_modality",
					Condition: "request.modality == 'video' && !appointment.telehealth_allowed",
					Reason:    "This visit type requires an in-person appointment, so I can't switch it to video.",
				},
				{
					Name: "postop_window",
					Condition: "request.action == 'reschedule' && appointment.postop_max_days >= 0 && " +
						"request.desired_offset_days >= 0 && " +
						"(request.desired_offset_days < appointment.postop_min_days || " +
						"request.desired_offset_days > appointment.postop_max_days)",
					Reason: "Post-op checks need to stay within the window your surgeon set, so I can't move it to that date.",
				},
			},
		},
		Followup: FollowupPolicy{
			NotifySeverity:    7,
			HistoryWindowDays: 7,
		},
		Caregiver: CaregiverPolicy{
			WindowDays:          7,
			HighAvgSeverity:     7.0,
			HighMissedDoses:     3,
			ModerateAvgSeverity: 4.0,
			ModerateMissedDoses: 1,
		},
	}
}

// Load returns the policy document, starting from Defaults and merging
// the YAML document at path over it when path is non-empty. Every gate
// condition is compiled before the policy is returned.
func Load(path string, eval *celeval.Evaluator) (*Policy, error) {
	p := Defaults()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read policy document: %w", err)
		}
		if err := v.Unmarshal(p); err != nil {
			return nil, fmt.Errorf("decode policy document: %w", err)
		}
	}

	if err := p.validate(eval); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

func (p *Policy) validate(eval *celeval.Evaluator) error {
	if p.Appointment.RescheduleCutoffHours <= 0 {
		return fmt.Errorf("appointment.reschedule_cutoff_hours must be positive")
	}
	if p.Appointment.SlotSearchDays <= 0 {
		return fmt.Errorf("appointment.slot_search_days must be positive")
	}
	if p.Appointment.MaxAlternatives <= 0 {
		return fmt.Errorf("appointment.max_alternatives must be positive")
	}
	if p.Caregiver.WindowDays <= 0 {
		return fmt.Errorf("caregiver.window_days must be positive")
	}

	for _, g := range p.Appointment.Gates {
		if g.Name == "" {
			return fmt.Errorf("gate with empty name")
		}
		if strings.TrimSpace(g.Condition) == "" {
			return fmt.Errorf("gate %s: empty condition", g.Name)
		}
		if g.Reason == "" {
			return fmt.Errorf("gate %s: empty reason", g.Name)
		}
		if err := eval.ValidateExpression(g.Condition); err != nil {
			return fmt.Errorf("gate %s: %w", g.Name, err)
		}
	}
	return nil
}

// ReferralRequired reports whether planID needs a provider referral for
// scheduling changes.
func (p *AppointmentPolicy) ReferralRequired(planID string) bool {
	for _, id := range p.ReferralRequiredPlans {
		if id == planID {
			return true
		}
	}
	return false
}

// PostOpWindow returns the allowed window for a surgical visit type,
// or ok=false when the type has no window constraint.
func (p *AppointmentPolicy) PostOpWindow(visitType string) (Window, bool) {
	w, ok := p.PostOpWindows[visitType]
	return w, ok
}
