// Package router classifies patient utterances into the five handler
// intents and resolves the patient identifier.
//
// Routing is hybrid: the model path runs first with a strict-JSON
// classification prompt, and an ordered keyword table is the
// deterministic fallback. A model answer of help is treated as low
// confidence and re-decided by the keywords, so the keyword ordering
// (scheduling beats symptoms beats medication beats caregiver) is the
// final authority whenever the model is unsure or unavailable.
//
// Example:
//
//	r := router.New(invoker, logger)
//	res := r.Route(ctx, "I am patient 10004235, can you check my appointment", "")
//	// res.Intent == router.IntentAppointment
//	// res.PatientID == "10004235"
package router
