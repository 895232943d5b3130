//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/api/handlers"
	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/testutil/fakes"
	"github.com/pushmill/automation-engine/pkg/config"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// buildStack wires an engine with in-memory fakes behind the operator routes.
func buildStack(t *testing.T) (*gin.Engine, *engine.Engine, *fakes.FakeDefinitionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	definitions := fakes.NewFakeDefinitionStore()
	eng := engine.New(engine.Deps{
		Config:      config.App{Environment: "test", EngineVersion: "v2"},
		Logger:      logging.NewNoOpLogger(),
		Definitions: definitions,
		Progress:    fakes.NewFakeProgressStore(),
		History:     fakes.NewFakeHistoryStore(),
		Publisher:   &fakes.FakePublisher{},
		Downstream:  fakes.NewFakeDownstream(),
		Subprocess:  &fakes.FakeSubprocessRunner{},
	})
	t.Cleanup(eng.Shutdown)

	logger := logging.NewNoOpLogger()
	automations := handlers.NewAutomationHandler(logger, eng)
	control := handlers.NewControlHandler(logger, eng)

	r := gin.New()
	v1 := r.Group("/api/v1/automations")
	v1.GET("", automations.ListScheduled)
	v1.POST("/:id/schedule", automations.Schedule)
	v1.DELETE("/:id/schedule", automations.Unschedule)
	v1.POST("/control", control.Control)
	v1.GET("/control", control.ControlStatus)

	return r, eng, definitions
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func flowAutomation(id string) models.Automation {
	return models.Automation{
		ID:       id,
		Name:     "Winback Daily",
		IsActive: true,
		Status:   models.AutomationStatusActive,
		Schedule: models.Schedule{
			Frequency:     models.FrequencyDaily,
			ExecutionTime: "14:30",
		},
		Settings: models.Settings{
			CancellationWindowMinutes: intPtr(0),
		},
		PushSequence: []models.AutomationPush{{Title: "Come back", Body: "We miss you"}},
	}
}

func TestScheduleFlow_EndToEnd(t *testing.T) {
	r, eng, definitions := buildStack(t)
	definitions.Put(flowAutomation("a1"))

	// Unknown automation is rejected up front.
	w := doJSON(t, r, http.MethodPost, "/api/v1/automations/nope/schedule", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Schedule installs the cron handle.
	w = doJSON(t, r, http.MethodPost, "/api/v1/automations/a1/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, eng.IsScheduled("a1"))

	// The schedule table lists the entry.
	w = doJSON(t, r, http.MethodGet, "/api/v1/automations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listBody struct {
		Data []engine.ScheduledEntryInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listBody))
	require.Len(t, listBody.Data, 1)
	require.Equal(t, "a1", listBody.Data[0].AutomationID)

	// Kick off a run and wait for it to finish.
	w = doJSON(t, r, http.MethodPost, "/api/v1/automations/control", models.ControlRequest{
		AutomationID: "a1",
		Action:       models.ControlActionExecuteNow,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var controlBody struct {
		Data models.ControlResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &controlBody))
	require.NotEmpty(t, controlBody.Data.ExecutionID)

	require.Eventually(t, func() bool {
		return !eng.IsExecuting("a1")
	}, 10*time.Second, 20*time.Millisecond)
	require.EqualValues(t, 1, eng.Metrics().Completed)

	// Stopping an idle automation is a 404, not a silent success.
	w = doJSON(t, r, http.MethodPost, "/api/v1/automations/control", models.ControlRequest{
		AutomationID: "a1",
		Action:       models.ControlActionEmergencyStop,
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	// Unschedule is idempotent.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/automations/a1/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, eng.IsScheduled("a1"))
	w = doJSON(t, r, http.MethodDelete, "/api/v1/automations/a1/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestScheduleFlow_ControlStatusActions(t *testing.T) {
	r, _, definitions := buildStack(t)
	definitions.Put(flowAutomation("a2"))

	w := doJSON(t, r, http.MethodPost, "/api/v1/automations/a2/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/automations/control?automationId=a2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statusBody struct {
		Data models.ControlStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statusBody))
	require.Contains(t, statusBody.Data.AvailableActions, models.ControlActionExecuteNow)
	require.NotContains(t, statusBody.Data.AvailableActions, models.ControlActionResume)
}
