package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/handler"
	"github.com/carelink/triage-router/internal/router"
)

// TurnState is the per-utterance record: created when a message
// arrives, filled in as the turn moves through the router and its
// handler, logged, then discarded.
type TurnState struct {
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id"`
	TS        time.Time `json:"ts"`

	Input     string `json:"input"`
	PatientID string `json:"patient_id,omitempty"`
	Intent    string `json:"intent"`
	PathTaken string `json:"path_taken"`

	Response string           `json:"response"`
	Decision handler.Decision `json:"decision"`

	Voice         bool   `json:"voice,omitempty"`
	SpeechBackend string `json:"speech_backend,omitempty"`
}

// Recorder receives the completed turn. Recording failures are logged
// and never fail the turn.
type Recorder interface {
	Record(ctx context.Context, turn *TurnState) error
}

// Engine runs the strict turn sequence: route, exactly one handler,
// log. Turns are synchronous and never overlap; the only state carried
// between turns is the last known patient identifier.
type Engine struct {
	router    *router.Router
	handlers  map[router.Intent]handler.Handler
	fallback  handler.Handler
	recorders []Recorder
	logger    *zap.Logger

	sessionID     string
	lastPatientID string
}

// NewEngine wires the star graph. Every handler is wrapped with the
// catch-all boundary; the help handler doubles as the fallback for any
// intent without a registered handler.
func NewEngine(r *router.Router, handlers map[router.Intent]handler.Handler, logger *zap.Logger, recorders ...Recorder) *Engine {
	guarded := make(map[router.Intent]handler.Handler, len(handlers))
	for intent, h := range handlers {
		guarded[intent] = handler.Guard(h, logger)
	}
	fallback := guarded[router.IntentHelp]

	return &Engine{
		router:    r,
		handlers:  guarded,
		fallback:  fallback,
		recorders: recorders,
		logger:    logger,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this engine's conversation.
func (e *Engine) SessionID() string { return e.sessionID }

// SetPatientID seeds or overrides the carried patient identifier.
func (e *Engine) SetPatientID(id string) { e.lastPatientID = id }

// PatientID returns the identifier the next turn will start from.
func (e *Engine) PatientID() string { return e.lastPatientID }

// RunTurn processes one utterance end to end and returns the completed
// turn state. The reply text is always non-empty.
func (e *Engine) RunTurn(ctx context.Context, text string) *TurnState {
	return e.run(ctx, text, "")
}

// RunVoiceTurn is RunTurn for transcribed input; the turn records
// which speech backend produced the text.
func (e *Engine) RunVoiceTurn(ctx context.Context, text, speechBackend string) *TurnState {
	return e.run(ctx, text, speechBackend)
}

func (e *Engine) run(ctx context.Context, text, speechBackend string) *TurnState {
	turn := &TurnState{
		SessionID:     e.sessionID,
		TurnID:        uuid.NewString(),
		TS:            time.Now(),
		Input:         text,
		Voice:         speechBackend != "",
		SpeechBackend: speechBackend,
	}

	route := e.router.Route(ctx, text, e.lastPatientID)
	turn.Intent = string(route.Intent)
	turn.PathTaken = route.PathTaken
	turn.PatientID = route.PatientID

	h, ok := e.handlers[route.Intent]
	if !ok {
		h = e.fallback
	}

	reply := h.Handle(ctx, &handler.Request{
		Text:      text,
		PatientID: route.PatientID,
	})
	turn.Response = reply.Text
	turn.Decision = reply.Decision

	if route.PatientID != "" {
		e.lastPatientID = route.PatientID
	}

	for _, rec := range e.recorders {
		if err := rec.Record(ctx, turn); err != nil {
			e.logger.Warn("turn recording failed", zap.Error(err))
		}
	}

	e.logger.Info("turn complete",
		zap.String("turn_id", turn.TurnID),
		zap.String("intent", turn.Intent),
		zap.String("branch", turn.Decision.Branch),
		zap.String("tier", turn.Decision.Tier),
	)
	return turn
}
