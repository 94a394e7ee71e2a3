package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogSink writes notifications to a zap logger at Info level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.With(zap.String("component", "event_log_sink"))}
}

// Notify implements Sink.
func (s *LogSink) Notify(_ context.Context, n Notification) error {
	s.logger.Info("agent lifecycle event",
		zap.String("workflow_id", n.WorkflowID),
		zap.String("agent", n.AgentName),
		zap.String("phase", n.Phase),
		zap.Bool("success", n.Success),
		zap.Int64("execution_time_ms", n.ExecutionTimeMS),
		zap.String("error_type", n.ErrorType))
	return nil
}

// RedisSink publishes notifications as JSON to a Redis channel. The
// production deployment's progress fan-out subscribes to that channel; the
// fan-out itself is outside this module.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisSink creates a Redis pub/sub sink.
func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	if channel == "" {
		channel = "agentcore:events"
	}
	return &RedisSink{client: client, channel: channel}
}

// Notify implements Sink.
func (s *RedisSink) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
