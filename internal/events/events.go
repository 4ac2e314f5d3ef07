// Package events carries backtest lifecycle messages over Kafka: completion
// notifications out, run requests in.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	// TopicCompleted receives one message per successfully finished run.
	TopicCompleted = "backtest-completed"

	// TopicRequests carries externally triggered run requests.
	TopicRequests = "backtest-requests"
)

// CompletedEvent is published when a run finishes successfully.
type CompletedEvent struct {
	BacktestID  string    `json:"backtestId"`
	Status      string    `json:"status"`
	TotalTrades int       `json:"totalTrades"`
	Timestamp   time.Time `json:"timestamp"`
}

// RunRequest is an externally triggered run of an already created backtest.
type RunRequest struct {
	BacktestID string   `json:"backtestId"`
	Symbols    []string `json:"symbols"`
}

// Publisher emits completion events.
type Publisher interface {
	PublishCompleted(ctx context.Context, event CompletedEvent) error
	Close() error
}

// Compile-time interface checks.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*NopPublisher)(nil)
)

// ---------------------------------------------------------------------------
// Kafka publisher
// ---------------------------------------------------------------------------

// KafkaPublisher writes completion events to the backtest-completed topic,
// keyed by backtest id.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers.
func NewKafkaPublisher(brokers []string, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		log: log,
	}
}

// PublishCompleted sends one completion event.
func (p *KafkaPublisher) PublishCompleted(ctx context.Context, event CompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling completion event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: TopicCompleted,
		Key:   []byte(event.BacktestID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing completion for %s: %w", event.BacktestID, err)
	}
	p.log.Info("completion event published", "backtest_id", event.BacktestID, "total_trades", event.TotalTrades)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ---------------------------------------------------------------------------
// Nop publisher
// ---------------------------------------------------------------------------

// NopPublisher discards events. Used when Kafka is disabled and in tests.
type NopPublisher struct{}

func (NopPublisher) PublishCompleted(context.Context, CompletedEvent) error { return nil }
func (NopPublisher) Close() error                                           { return nil }

// ---------------------------------------------------------------------------
// Request consumer
// ---------------------------------------------------------------------------

// SubmitFunc hands a decoded run request to the execution layer.
type SubmitFunc func(backtestID string, symbols []string) error

// RequestConsumer reads run requests from the backtest-requests topic and
// submits them for execution.
type RequestConsumer struct {
	reader *kafka.Reader
	submit SubmitFunc
	log    *slog.Logger
}

// NewRequestConsumer creates a consumer in the given consumer group.
func NewRequestConsumer(brokers []string, groupID string, submit SubmitFunc, log *slog.Logger) *RequestConsumer {
	return &RequestConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       TopicRequests,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
		}),
		submit: submit,
		log:    log,
	}
}

// Run consumes requests until ctx is cancelled. Malformed messages and
// rejected submissions are logged and skipped.
func (c *RequestConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading run request: %w", err)
		}

		var req RunRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			c.log.Warn("malformed run request", "error", err)
			continue
		}
		if req.BacktestID == "" {
			c.log.Warn("run request missing backtest id")
			continue
		}

		if err := c.submit(req.BacktestID, req.Symbols); err != nil {
			c.log.Warn("run request rejected", "backtest_id", req.BacktestID, "error", err)
		}
	}
}
