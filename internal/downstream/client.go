package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pushmill/automation-engine/internal/logging"
	"go.uber.org/zap"
)

// Mode selects the downstream push-send behavior.
type Mode string

const (
	// ModeTestLiveSend dry-runs the full sequence to internal test users.
	ModeTestLiveSend Mode = "test-live-send"
	// ModeRealDryRun runs against real audiences without actual delivery.
	ModeRealDryRun Mode = "real-dry-run"
	// ModeLiveSend performs real delivery.
	ModeLiveSend Mode = "live-send"
)

// Timeouts for downstream calls. Live sends cover far larger audiences.
const (
	DefaultTimeout = 5 * time.Minute
	LiveTimeout    = 10 * time.Minute
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second
)

// Result is the terminal outcome of a downstream send.
type Result struct {
	Success bool
	Message string
}

// LogFunc receives intermediate log events from the downstream stream.
type LogFunc func(level, stage, message string)

// event is the JSON payload carried on a data: line.
type event struct {
	Type    string `json:"type"`
	Level   string `json:"level,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success,omitempty"`
}

// Client consumes the push-send service's SSE endpoint. A call is complete
// only once a terminal result or error event has been read; a successful HTTP
// handshake alone proves nothing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
	retryDelay time.Duration
}

// NewClient creates a downstream client against the push-send base URL.
func NewClient(baseURL string, logger logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger.With(zap.String("component", "downstream")),
		retryDelay: retryDelay,
	}
}

// Send opens the SSE stream for the automation in the given mode and blocks
// until a terminal event, the timeout, or context cancellation.
func (c *Client) Send(ctx context.Context, automationID string, mode Mode, timeout time.Duration, onLog LogFunc) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	streamCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/test-run/%s?mode=%s", c.baseURL, automationID, mode)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, err := c.connect(streamCtx, url)
		if err != nil {
			lastErr = err
			if streamCtx.Err() != nil {
				break
			}
			c.logger.Warn("downstream connection failed, retrying",
				zap.String("automation_id", automationID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if !c.sleep(streamCtx) {
				break
			}
			continue
		}

		if status >= 500 {
			body.Close()
			lastErr = fmt.Errorf("downstream returned HTTP %d", status)
			c.logger.Warn("downstream 5xx, retrying",
				zap.String("automation_id", automationID),
				zap.Int("attempt", attempt),
				zap.Int("status", status),
			)
			if !c.sleep(streamCtx) {
				break
			}
			continue
		}

		if status >= 400 {
			body.Close()
			return Result{}, fmt.Errorf("downstream returned HTTP %d", status)
		}

		result, err := c.consume(streamCtx, body, automationID, onLog)
		if err != nil {
			if streamCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return Result{}, fmt.Errorf("SSE stream timeout after %dms", timeout.Milliseconds())
			}
			return Result{}, err
		}
		return result, nil
	}

	if streamCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return Result{}, fmt.Errorf("SSE stream timeout after %dms", timeout.Milliseconds())
	}
	if lastErr == nil {
		lastErr = streamCtx.Err()
	}
	return Result{}, fmt.Errorf("downstream call failed after %d attempts: %w", maxAttempts, lastErr)
}

// connect performs the SSE handshake.
func (c *Client) connect(ctx context.Context, url string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build downstream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.StatusCode, nil
}

// consume reads the stream until a terminal event. The body is always closed.
func (c *Client) consume(ctx context.Context, body io.ReadCloser, automationID string, onLog LogFunc) (Result, error) {
	defer body.Close()

	buf := make([]byte, 4096)
	var pending string

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			pending += string(buf[:n])
			for {
				idx := strings.Index(pending, "\n\n")
				if idx < 0 {
					break
				}
				raw := pending[:idx]
				pending = pending[idx+2:]

				if result, terminal := c.handleEvent(raw, automationID, onLog); terminal {
					return result, nil
				}
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if readErr == io.EOF {
				return Result{}, fmt.Errorf("downstream stream ended without terminal event")
			}
			return Result{}, fmt.Errorf("read downstream stream: %w", readErr)
		}
	}
}

// handleEvent parses one SSE event block; malformed payloads (heartbeats,
// comments) are ignored.
func (c *Client) handleEvent(raw, automationID string, onLog LogFunc) (Result, bool) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var ev event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "log":
			if onLog != nil {
				onLog(ev.Level, ev.Stage, ev.Message)
			}
		case "result":
			return Result{Success: ev.Success, Message: ev.Message}, true
		case "error":
			return Result{Success: false, Message: ev.Message}, true
		}
	}
	return Result{}, false
}

// sleep waits the fixed backoff, honoring cancellation.
func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-time.After(c.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}
