package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/logging"
)

func TestNewHealthHandler_WhenCreated_ThenReturnsHandler(t *testing.T) {
	// Arrange
	logger := logging.NewNoOpLogger()

	// Act
	handler := NewHealthHandler(logger, "v2")

	// Assert
	if handler == nil {
		t.Fatal("expected handler to be non-nil")
	}
	if handler.logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
}

func TestHealth_WhenCalled_ThenReturns200WithHealthStatus(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, router := gin.CreateTestContext(w)

	logger := logging.NewNoOpLogger()
	handler := NewHealthHandler(logger, "v2")

	router.GET("/health", handler.Health)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	// Act
	router.ServeHTTP(w, c.Request)

	// Assert
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var responseWrapper struct {
		Data HealthResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &responseWrapper)
	if err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	response := responseWrapper.Data
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Service != "automation-engine" {
		t.Errorf("expected service 'automation-engine', got '%s'", response.Service)
	}
	if response.EngineVersion != "v2" {
		t.Errorf("expected engine version 'v2', got '%s'", response.EngineVersion)
	}
}
