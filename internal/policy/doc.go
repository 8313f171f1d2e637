// Package policy holds the declarative rules that bound what the
// conversation is allowed to do: scheduling-change gates, reschedule
// cutoffs, follow-up notification thresholds, and caregiver summary
// thresholds.
//
// The document ships with built-in defaults and can be overridden by a
// YAML file. Gate conditions are CEL expressions compiled and validated
// at load time, so a broken document fails at startup.
package policy
