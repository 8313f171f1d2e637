package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Request is what a handler receives for one turn: the utterance and
// the resolved patient identifier, empty when none is known.
type Request struct {
	Text      string
	PatientID string
}

// Decision is the structured record of which branch a handler took,
// logged alongside the natural-language reply.
type Decision struct {
	Handler   string                 `json:"handler"`
	Branch    string                 `json:"branch"`
	Tier      string                 `json:"tier,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Provider  string                 `json:"provider,omitempty"`
	Model     string                 `json:"model,omitempty"`
	LatencyMS int64                  `json:"latency_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Reply is one terminal handler result: exactly one user-visible string
// plus its decision record.
type Reply struct {
	Text     string
	Decision Decision
}

// Handler handles exactly one intent. Handle never returns an error;
// failures become explanatory replies with an error-tagged decision.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req *Request) *Reply
}

const apologyText = "I'm sorry, something went wrong on my end while handling that. " +
	"Please try again, or call your care team directly if this is urgent."

// needIDText is the shared clarifying prompt for a missing identifier.
const needIDText = "I'd be happy to help with that. Could you share your 8-digit patient ID first?"

// notFoundText is the shared reply for an identifier with no record.
const notFoundText = "I couldn't find a record for that patient ID. " +
	"Please double-check the 8 digits, or call the clinic so we can look you up another way."

// guarded wraps a handler with the catch-all boundary: a panic becomes
// an apology reply with an error-tagged decision instead of taking the
// turn down.
type guarded struct {
	inner  Handler
	logger *zap.Logger
}

// Guard applies the outer boundary to a handler.
func Guard(h Handler, logger *zap.Logger) Handler {
	return &guarded{inner: h, logger: logger}
}

func (g *guarded) Name() string { return g.inner.Name() }

func (g *guarded) Handle(ctx context.Context, req *Request) (reply *Reply) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("handler panicked",
				zap.String("handler", g.inner.Name()),
				zap.Any("panic", r),
			)
			reply = &Reply{
				Text: apologyText,
				Decision: Decision{
					Handler: g.inner.Name(),
					Branch:  "ERROR",
					Error:   fmt.Sprintf("panic: %v", r),
				},
			}
		}
	}()
	return g.inner.Handle(ctx, req)
}

// errorReply builds the apology reply for an unexpected store or
// rendering failure inside a handler.
func errorReply(name string, err error) *Reply {
	return &Reply{
		Text: apologyText,
		Decision: Decision{
			Handler: name,
			Branch:  "ERROR",
			Error:   err.Error(),
		},
	}
}
