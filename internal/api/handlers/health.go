package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/api/response"
	"github.com/pushmill/automation-engine/internal/logging"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger  logging.Logger
	version string
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(logger logging.Logger, engineVersion string) *HealthHandler {
	return &HealthHandler{logger: logger, version: engineVersion}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status" example:"ok"`
	Service       string `json:"service" example:"automation-engine"`
	EngineVersion string `json:"engineVersion" example:"v2"`
} // @name HealthResponse

// Health godoc
// @Summary Health check endpoint
// @Description Returns the health status of the engine service
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.OK(c, HealthResponse{
		Status:        "ok",
		Service:       "automation-engine",
		EngineVersion: h.version,
	})
}
