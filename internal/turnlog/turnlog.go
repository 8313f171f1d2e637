// Package turnlog is the observability sink: one structured record per
// completed turn, appended to a JSONL file and, when configured,
// published to a Redis Stream for downstream consumers.
package turnlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/workflow"
)

// JSONL appends one JSON line per turn. Writes are serialized within
// the process; multi-process deployments must coordinate externally.
type JSONL struct {
	path string
	mu   sync.Mutex
}

// NewJSONL creates the file sink, verifying the path is writable.
func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open turn log: %w", err)
	}
	f.Close()
	return &JSONL{path: path}, nil
}

func (j *JSONL) Record(_ context.Context, turn *workflow.TurnState) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open turn log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Stream publishes each turn to a Redis Stream.
type Stream struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStream builds the Redis sink.
func NewStream(client *redis.Client, stream string, logger *zap.Logger) *Stream {
	return &Stream{client: client, stream: stream, logger: logger}
}

func (s *Stream) Record(ctx context.Context, turn *workflow.TurnState) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err(); err != nil {
		return fmt.Errorf("publish turn to stream: %w", err)
	}

	s.logger.Debug("published turn",
		zap.String("stream", s.stream),
		zap.String("turn_id", turn.TurnID),
	)
	return nil
}
