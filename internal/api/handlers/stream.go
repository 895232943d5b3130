package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/api/response"
	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/progress"
	"github.com/pushmill/automation-engine/internal/storage"
	"go.uber.org/zap"
)

const (
	heartbeatInterval = 15 * time.Second
	doneLinger        = 500 * time.Millisecond
)

// StreamHandler exposes execution progress as a server-sent event stream.
type StreamHandler struct {
	logger logging.Logger
	engine *engine.Engine
}

// NewStreamHandler creates a new progress stream handler.
func NewStreamHandler(logger logging.Logger, eng *engine.Engine) *StreamHandler {
	return &StreamHandler{
		logger: logger.With(zap.String("handler", "stream")),
		engine: eng,
	}
}

// Stream godoc
// @Summary Stream execution progress
// @Description Opens an SSE stream of connected, log, progress, done and heartbeat events for the automation
// @Tags Automations
// @Produce text/event-stream
// @Param automationId query string true "Automation ID"
// @Param startExecution query bool false "Start an execution before streaming"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} response.ErrorResponse "Missing automation id"
// @Router /api/v1/automations/progress-stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	automationID := c.Query("automationId")
	if automationID == "" {
		response.BadRequest(c, "automationId is required", nil)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before any catch-up read so no live event is lost in between.
	events, unsubscribe := h.engine.Bus().Subscribe(automationID)
	defer unsubscribe()

	c.SSEvent("connected", gin.H{
		"automationId": automationID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	c.Writer.Flush()

	if c.Query("startExecution") == "true" {
		executionID, err := h.engine.ExecuteNow(c.Request.Context(), automationID)
		if err != nil && !errors.Is(err, engine.ErrExecutionActive) {
			h.sendDone(c, models.ExecutionStatusFailed, err.Error())
			return
		}
		if executionID != "" {
			h.logger.Info("execution started from stream",
				zap.String("automation_id", automationID),
				zap.String("execution_id", executionID),
			)
		}
	}

	if done := h.catchUp(c, automationID); done {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	notify := c.Request.Context().Done()
	for {
		select {
		case <-notify:
			return
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)})
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if terminal := h.sendEvent(c, ev); terminal {
				return
			}
		}
	}
}

// catchUp replays the latest execution's durable state so late observers see
// where the run stands. Returns true when the stream was closed because the
// latest execution is already terminal.
func (h *StreamHandler) catchUp(c *gin.Context, automationID string) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := h.engine.Progress().GetLatestExecution(ctx, automationID)
	if err != nil {
		if !errors.Is(err, storage.ErrExecutionNotFound) {
			h.logger.Warn("progress catch-up failed",
				zap.String("automation_id", automationID),
				zap.Error(err),
			)
		}
		return false
	}

	logs, err := h.engine.Progress().GetLogs(ctx, record.ExecutionID)
	if err == nil {
		for _, entry := range logs {
			c.SSEvent("log", gin.H{
				"executionId": record.ExecutionID,
				"level":       entry.Level,
				"phase":       entry.Phase,
				"message":     entry.Message,
				"timestamp":   entry.Timestamp.Format(time.RFC3339),
			})
		}
	}

	c.SSEvent("progress", gin.H{
		"executionId": record.ExecutionID,
		"status":      record.Status,
		"phase":       record.CurrentPhase,
		"progress":    gin.H{"current": record.ProgressCurrent, "total": record.ProgressTotal},
		"message":     record.Message,
	})
	c.Writer.Flush()

	if record.Status != models.ExecutionStatusRunning {
		h.sendDone(c, record.Status, record.Message)
		return true
	}
	return false
}

// sendEvent forwards a bus event to the client. Returns true for terminal
// done events, after which the stream is closed.
func (h *StreamHandler) sendEvent(c *gin.Context, ev progress.Event) bool {
	switch ev.Type {
	case "log":
		c.SSEvent("log", gin.H{
			"executionId": ev.ExecutionID,
			"level":       ev.Level,
			"phase":       ev.Phase,
			"message":     ev.Message,
			"timestamp":   ev.Timestamp.Format(time.RFC3339),
		})
		c.Writer.Flush()
	case "progress":
		c.SSEvent("progress", gin.H{
			"executionId": ev.ExecutionID,
			"status":      ev.Status,
			"phase":       ev.Phase,
			"progress":    gin.H{"current": ev.Current, "total": ev.Total},
			"message":     ev.Message,
		})
		c.Writer.Flush()
	case "done":
		h.sendDone(c, ev.Status, ev.Message)
		return true
	}
	return false
}

// sendDone emits the terminal event, lingers briefly so slow proxies flush
// the payload, then lets the handler return and close the stream.
func (h *StreamHandler) sendDone(c *gin.Context, status models.ExecutionStatus, message string) {
	c.SSEvent("done", gin.H{
		"status":  status,
		"message": message,
	})
	c.Writer.Flush()

	select {
	case <-time.After(doneLinger):
	case <-c.Request.Context().Done():
	}
	c.Status(http.StatusOK)
}
