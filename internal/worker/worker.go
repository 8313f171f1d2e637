package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carelink/triage-router/internal/workflow"
)

// Request is one utterance pulled off the request stream.
type Request struct {
	SessionID string `json:"session_id"`
	PatientID string `json:"patient_id,omitempty"`
	Text      string `json:"text"`
}

// Worker consumes patient utterances from a Redis Stream and publishes
// the completed turns to the reply stream. One consumer processes one
// message at a time, so turns stay strictly sequential.
type Worker struct {
	id            string
	redisClient   *redis.Client
	engine        *workflow.Engine
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	requestStream string
	consumerGroup string
	replyStream   string
	blockTime     time.Duration
}

// New creates a stream worker around the turn engine.
func New(id string, redisClient *redis.Client, engine *workflow.Engine, requestStream, consumerGroup, replyStream string, blockTime time.Duration, logger *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		id:            id,
		redisClient:   redisClient,
		engine:        engine,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		requestStream: requestStream,
		consumerGroup: consumerGroup,
		replyStream:   replyStream,
		blockTime:     blockTime,
	}
}

// Start begins consuming. It returns once the loop is running.
func (w *Worker) Start() error {
	w.logger.Info("starting turn worker",
		zap.String("worker_id", w.id),
		zap.String("request_stream", w.requestStream),
		zap.String("consumer_group", w.consumerGroup),
	)

	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	go w.processTurns()

	w.logger.Info("turn worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() error {
	w.logger.Info("stopping turn worker", zap.String("worker_id", w.id))
	w.cancel()

	// Wait a bit for the in-flight turn to complete
	time.Sleep(2 * time.Second)

	w.logger.Info("turn worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.requestStream, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP error means the group already exists, which is fine
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.requestStream),
	)
	return nil
}

// processTurns consumes utterances until the worker is stopped.
func (w *Worker) processTurns() {
	w.logger.Info("starting turn processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("turn processing loop stopped")
			return
		default:
			streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
				Group:    w.consumerGroup,
				Consumer: w.id,
				Streams:  []string{w.requestStream, ">"},
				Count:    1,
				Block:    w.blockTime,
			}).Result()

			if err != nil {
				if err == redis.Nil {
					continue
				}
				w.logger.Error("failed to read from stream", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					w.handleMessage(message)
				}
			}
		}
	}
}

// handleMessage runs one utterance through the engine and publishes
// the completed turn. Bad messages are acknowledged and dropped so
// they cannot wedge the stream.
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID

	req, err := w.parseRequest(message.Values)
	if err != nil {
		w.logger.Error("failed to parse turn request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.acknowledgeMessage(messageID)
		return
	}

	if req.PatientID != "" {
		w.engine.SetPatientID(req.PatientID)
	}
	turn := w.engine.RunTurn(w.ctx, req.Text)

	if err := w.publishTurn(req, turn); err != nil {
		w.logger.Error("failed to publish turn",
			zap.String("message_id", messageID),
			zap.String("turn_id", turn.TurnID),
			zap.Error(err),
		)
		w.publishError(req, err)
	}

	w.acknowledgeMessage(messageID)
}

// parseRequest parses a turn request from a stream message
func (w *Worker) parseRequest(values map[string]interface{}) (*Request, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var req Request
	if err := json.Unmarshal([]byte(dataStr), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal turn request: %w", err)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("empty 'text' field")
	}
	return &req, nil
}

// publishTurn publishes the completed turn to the reply stream.
func (w *Worker) publishTurn(req *Request, turn *workflow.TurnState) error {
	reply := map[string]interface{}{
		"session_id": req.SessionID,
		"turn_id":    turn.TurnID,
		"intent":     turn.Intent,
		"branch":     turn.Decision.Branch,
		"tier":       turn.Decision.Tier,
		"response":   turn.Response,
		"timestamp":  time.Now().UTC(),
	}

	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	if _, err = w.redisClient.XAdd(w.ctx, &redis.XAddArgs{
		Stream: w.replyStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result(); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	w.logger.Info("published turn reply",
		zap.String("turn_id", turn.TurnID),
		zap.String("intent", turn.Intent),
		zap.String("branch", turn.Decision.Branch),
	)
	return nil
}

// publishError publishes an error event alongside the reply stream.
func (w *Worker) publishError(req *Request, err error) {
	errorEvent := map[string]interface{}{
		"session_id": req.SessionID,
		"error":      err.Error(),
		"timestamp":  time.Now().UTC(),
	}

	data, marshalErr := json.Marshal(errorEvent)
	if marshalErr != nil {
		w.logger.Error("failed to marshal error event", zap.Error(marshalErr))
		return
	}

	if _, publishErr := w.redisClient.XAdd(w.ctx, &redis.XAddArgs{
		Stream: w.replyStream + ".errors",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result(); publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	err := w.redisClient.XAck(w.ctx, w.requestStream, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
