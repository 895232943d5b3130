package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
)

func TestNewPublisher_WhenBrokersSet_ThenConfiguresWriter(t *testing.T) {
	// Arrange & Act
	publisher := NewPublisher("broker1:9092,broker2:9092", logging.NewNoOpLogger())

	// Assert
	if publisher == nil {
		t.Fatal("expected publisher to be non-nil")
	}
	if publisher.writer == nil {
		t.Fatal("expected writer to be non-nil")
	}
	if publisher.writer.Topic != Topic {
		t.Errorf("expected topic '%s', got '%s'", Topic, publisher.writer.Topic)
	}
	if publisher.writer.Addr.String() != "broker1:9092,broker2:9092" {
		t.Errorf("unexpected broker configuration: %s", publisher.writer.Addr.String())
	}
}

func TestNewPublisher_WhenNoBrokers_ThenPublishingIsDisabled(t *testing.T) {
	// Arrange
	publisher := NewPublisher("", logging.NewNoOpLogger())

	// Assert
	if publisher.writer != nil {
		t.Fatal("expected writer to be nil when no brokers are configured")
	}

	// Act - a disabled publisher accepts events silently
	err := publisher.Publish(context.Background(), ExecutionEvent{
		AutomationID: "a1",
		Type:         "started",
		Status:       models.ExecutionStatusRunning,
	})
	if err != nil {
		t.Errorf("expected no error from disabled publisher, got %v", err)
	}

	if err := publisher.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestClose_WhenCalledMultipleTimes_ThenDoesNotPanic(t *testing.T) {
	// Arrange
	publisher := NewPublisher("localhost:9092", logging.NewNoOpLogger())

	// Act & Assert
	_ = publisher.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("expected no panic, but got: %v", r)
		}
	}()
	_ = publisher.Close()
}

func TestExecutionEvent_WhenMarshaledToJSON_ThenUsesCamelCaseFields(t *testing.T) {
	// Arrange
	event := ExecutionEvent{
		EventID:      "evt-123",
		ExecutionID:  "exec-456",
		AutomationID: "a1",
		InstanceID:   "inst-789",
		Type:         "completed",
		Phase:        models.PhaseCleanup,
		Status:       models.ExecutionStatusCompleted,
		At:           time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC),
	}

	// Act
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	// Assert
	for _, key := range []string{"eventId", "executionId", "automationId", "instanceId", "type", "phase", "status", "at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected field %q in payload", key)
		}
	}
	if decoded["type"] != "completed" {
		t.Errorf("expected type 'completed', got %v", decoded["type"])
	}
}
