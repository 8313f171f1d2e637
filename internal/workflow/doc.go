// Package workflow drives the turn loop: one utterance is routed to
// exactly one handler, the reply and decision are recorded, and the
// turn state is discarded. The routing graph is a flat star with the
// router at the center; handlers are all terminal.
package workflow
