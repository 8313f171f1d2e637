package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNoBackends is returned when every transcription backend is
// unconfigured or failed.
var ErrNoBackends = errors.New("no transcription backend available")

// Transcriber converts an audio file into text.
type Transcriber interface {
	// Name identifies the backend in logs and results.
	Name() string

	// Available reports whether the backend is configured.
	Available() bool

	// Transcribe returns the spoken text of the audio file at path.
	Transcribe(ctx context.Context, path string) (string, error)
}

// Result carries a transcription and the backend that produced it.
type Result struct {
	Text      string
	Backend   string
	LatencyMS int64
}

// Chain tries each configured backend in order and returns the first
// transcription. A backend failure falls through to the next one.
type Chain struct {
	backends []Transcriber
	logger   *zap.Logger
}

// NewChain builds a transcription chain. Order is significant.
func NewChain(logger *zap.Logger, backends ...Transcriber) *Chain {
	return &Chain{backends: backends, logger: logger}
}

// Usable reports whether at least one backend is configured.
func (c *Chain) Usable() bool {
	for _, b := range c.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// Transcribe runs the chain against the audio file at path.
func (c *Chain) Transcribe(ctx context.Context, path string) (*Result, error) {
	attempted := false
	for _, b := range c.backends {
		if !b.Available() {
			continue
		}
		attempted = true

		start := time.Now()
		text, err := b.Transcribe(ctx, path)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			c.logger.Warn("transcription backend failed",
				zap.String("backend", b.Name()),
				zap.Int64("latency_ms", latency),
				zap.Error(err))
			continue
		}

		c.logger.Info("transcription complete",
			zap.String("backend", b.Name()),
			zap.Int64("latency_ms", latency))
		return &Result{Text: text, Backend: b.Name(), LatencyMS: latency}, nil
	}

	if !attempted {
		return nil, ErrNoBackends
	}
	return nil, fmt.Errorf("all transcription backends failed: %w", ErrNoBackends)
}
