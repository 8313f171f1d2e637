package speech

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper transcribes audio through the OpenAI speech-to-text API.
type Whisper struct {
	client *openai.Client
	apiKey string
}

// NewWhisper builds the OpenAI backend. An empty apiKey leaves it
// unavailable rather than erroring.
func NewWhisper(apiKey string) *Whisper {
	w := &Whisper{apiKey: apiKey}
	if apiKey != "" {
		w.client = openai.NewClient(apiKey)
	}
	return w
}

func (w *Whisper) Name() string { return "openai-whisper" }

func (w *Whisper) Available() bool { return w.apiKey != "" }

func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return resp.Text, nil
}
