package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/llm"
)

const helpScope = `You are a post-discharge care assistant. You can: check, cancel, or reschedule appointments; record symptom check-ins; answer questions about the patient's prescribed medications; and share recovery summaries with consented caregivers.

Stay within that scope. Do not diagnose, do not give treatment advice beyond the knowledge base, and direct anything urgent to emergency services. Answer in two or three sentences.`

const staticMenu = "I can help you with a few things: checking or changing your appointment, " +
	"recording how you're feeling after discharge, answering questions about your prescribed medications, " +
	"or sharing a recovery summary with your caregiver. What would you like to do?"

// Help answers everything the other handlers don't. It always
// succeeds: conversational when the model layer is usable, the static
// menu otherwise.
type Help struct {
	invoker *llm.Invoker
	logger  *zap.Logger
}

// NewHelp builds the help handler.
func NewHelp(invoker *llm.Invoker, logger *zap.Logger) *Help {
	return &Help{invoker: invoker, logger: logger}
}

func (h *Help) Name() string { return "help" }

func (h *Help) Handle(ctx context.Context, req *Request) *Reply {
	if h.invoker != nil && h.invoker.Usable() {
		result, err := h.invoker.Invoke(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: helpScope},
			{Role: llm.RoleUser, Content: req.Text},
		}, llm.Options{Temperature: 0.4})
		if err == nil && result.Success {
			return &Reply{
				Text: result.Text,
				Decision: Decision{
					Handler:   h.Name(),
					Branch:    "LLM_ANSWER",
					Provider:  result.Provider,
					Model:     result.Model,
					LatencyMS: result.LatencyMS,
				},
			}
		}
		h.logger.Warn("help answer fell back to static menu")
	}

	return &Reply{
		Text: staticMenu,
		Decision: Decision{
			Handler: h.Name(),
			Branch:  "STATIC_MENU",
		},
	}
}
