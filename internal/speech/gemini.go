package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAudio transcribes audio by sending the raw bytes to a Gemini
// multimodal model.
type GeminiAudio struct {
	apiKey string
	model  string
}

// NewGeminiAudio builds the Gemini backend. An empty apiKey leaves it
// unavailable.
func NewGeminiAudio(apiKey, model string) *GeminiAudio {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiAudio{apiKey: apiKey, model: model}
}

func (g *GeminiAudio) Name() string { return "gemini-audio" }

func (g *GeminiAudio) Available() bool { return g.apiKey != "" }

func (g *GeminiAudio) Transcribe(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: audioMIME(path), Data: audio},
		genai.Text("Transcribe this audio verbatim. Return only the spoken words."),
	)
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func audioMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}
