package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Topic carries the execution lifecycle feed for external consumers.
const Topic = "automation.executions"

// ExecutionEvent is one lifecycle notification on the feed.
type ExecutionEvent struct {
	EventID      string                 `json:"eventId"`
	ExecutionID  string                 `json:"executionId"`
	AutomationID string                 `json:"automationId"`
	InstanceID   string                 `json:"instanceId"`
	Type         string                 `json:"type"` // started | phase | completed | cancelled
	Phase        models.Phase           `json:"phase,omitempty"`
	Status       models.ExecutionStatus `json:"status,omitempty"`
	At           time.Time              `json:"at"`
}

// Publisher emits execution lifecycle events to Kafka. When no brokers are
// configured the publisher is a no-op; lifecycle publishing must never affect
// an execution's outcome.
type Publisher struct {
	writer *kafka.Writer
	logger logging.Logger
}

// NewPublisher builds a publisher for the comma-separated broker list. An
// empty list disables publishing.
func NewPublisher(brokers string, logger logging.Logger) *Publisher {
	p := &Publisher{logger: logger.With(zap.String("component", "lifecycle_publisher"))}
	if brokers == "" {
		return p
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return p
}

// Publish writes one lifecycle event, keyed by automation id so per-automation
// ordering is preserved.
func (p *Publisher) Publish(ctx context.Context, ev ExecutionEvent) error {
	if p.writer == nil {
		return nil
	}

	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal execution event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.AutomationID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish execution event",
			zap.String("event_id", ev.EventID),
			zap.String("automation_id", ev.AutomationID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
		return fmt.Errorf("publish execution event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
