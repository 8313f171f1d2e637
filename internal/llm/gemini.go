package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini serves completions through the Generative Language API.
// Gemini has no separate system channel, so the conversation is
// flattened into a single role-labelled prompt.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{apiKey: apiKey, model: model}
}

func (g *Gemini) Name() string         { return "google" }
func (g *Gemini) DefaultModel() string { return g.model }
func (g *Gemini) Available() bool      { return g.apiKey != "" }

func (g *Gemini) Generate(ctx context.Context, messages []Message, temperature float64) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("new client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(float32(temperature))

	resp, err := model.GenerateContent(ctx, genai.Text(flattenMessages(messages)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var out strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
	}
	if out.Len() == 0 {
		return "", errors.New("empty completion")
	}
	return out.String(), nil
}

func flattenMessages(messages []Message) string {
	labels := map[string]string{
		RoleSystem:    "System",
		RoleUser:      "User",
		RoleAssistant: "Assistant",
	}
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		label, ok := labels[m.Role]
		if !ok {
			label = "User"
		}
		parts = append(parts, label+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}
