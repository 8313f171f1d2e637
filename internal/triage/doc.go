// Package triage maps symptom reports to an ordered urgency tier.
//
// The evaluator owns the one RED/ORANGE rule table shared by the
// appointment and follow-up handlers, so an utterance escalates the
// same way no matter which handler observes it first. Rules are
// ordered and short-circuit: RED rows are checked before ORANGE rows,
// and GREEN is the default when nothing fires.
package triage
