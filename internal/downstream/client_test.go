package downstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logRecorder captures forwarded stream log events.
type logRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *logRecorder) record(level, stage, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, fmt.Sprintf("%s/%s/%s", level, stage, message))
}

func (r *logRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func sseServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, logging.NewNoOpLogger())
	client.retryDelay = time.Millisecond
	return server, client
}

func writeEvent(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestSend_ResolvesOnResultEvent(t *testing.T) {
	var gotPath, gotQuery, gotAccept string
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, `{"type":"log","level":"info","stage":"audience","message":"loading"}`)
		writeEvent(w, `{"type":"result","success":true,"message":"sent 42 pushes"}`)
	})

	logs := &logRecorder{}
	result, err := client.Send(context.Background(), "a1", ModeTestLiveSend, DefaultTimeout, logs.record)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "sent 42 pushes", result.Message)

	assert.Equal(t, "/api/test-run/a1", gotPath)
	assert.Equal(t, "mode=test-live-send", gotQuery)
	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, []string{"info/audience/loading"}, logs.all())
}

func TestSend_ErrorEventIsTerminalFailure(t *testing.T) {
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, `{"type":"error","message":"audience file missing"}`)
	})

	result, err := client.Send(context.Background(), "a1", ModeLiveSend, DefaultTimeout, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "audience file missing", result.Message)
}

func TestSend_Http200WithoutTerminalEventIsNotSuccess(t *testing.T) {
	// the handshake succeeding proves nothing; the stream ends with no result
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, `{"type":"log","level":"info","message":"working"}`)
	})

	_, err := client.Send(context.Background(), "a1", ModeTestLiveSend, DefaultTimeout, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "without terminal event")
}

func TestSend_MalformedDataLinesAreIgnored(t *testing.T) {
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": heartbeat comment\n\n")
		writeEvent(w, `not json at all`)
		writeEvent(w, `{"type":"result","success":true,"message":"done"}`)
	})

	result, err := client.Send(context.Background(), "a1", ModeTestLiveSend, DefaultTimeout, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSend_RetriesOn5xx(t *testing.T) {
	var attempts int
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, `{"type":"result","success":true,"message":"ok"}`)
	})

	result, err := client.Send(context.Background(), "a1", ModeTestLiveSend, DefaultTimeout, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, attempts)
}

func TestSend_GivesUpAfterThreeAttempts(t *testing.T) {
	var attempts int
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Send(context.Background(), "a1", ModeTestLiveSend, DefaultTimeout, nil)

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestSend_4xxFailsImmediately(t *testing.T) {
	var attempts int
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Send(context.Background(), "a1", ModeTestLiveSend, DefaultTimeout, nil)

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "4xx must not be retried")
}

func TestSend_TimeoutMessageCarriesMilliseconds(t *testing.T) {
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	_, err := client.Send(context.Background(), "a1", ModeLiveSend, 50*time.Millisecond, nil)

	require.Error(t, err)
	assert.EqualError(t, err, "SSE stream timeout after 50ms")
}

func TestSend_LiveTimeoutIsTenMinutes(t *testing.T) {
	// the operator-facing timeout message for live sends reads 600000ms
	assert.EqualValues(t, 600000, LiveTimeout.Milliseconds())
	assert.Equal(t, "SSE stream timeout after 600000ms", fmt.Sprintf("SSE stream timeout after %dms", LiveTimeout.Milliseconds()))
}

func TestSend_ContextCancellationPropagates(t *testing.T) {
	_, client := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Send(ctx, "a1", ModeTestLiveSend, DefaultTimeout, nil)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SSE stream timeout", "caller cancellation is not a stream timeout")
}
