// Package handler contains the five domain handlers behind the intent
// router: appointment, followup, medication, caregiver, and help.
//
// Handlers share one shape: a missing patient identifier produces a
// clarifying prompt, record lookups go through the records store,
// declarative policy checks run before any action, and the result is
// one natural-language reply plus a structured Decision naming the
// branch taken. Handlers never surface errors to the turn loop; Guard
// additionally converts panics into an apology reply.
package handler
