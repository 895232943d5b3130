package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pushmill/automation-engine/internal/api/response"
	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
)

// MetricsHandler handles metrics requests.
type MetricsHandler struct {
	logger logging.Logger
	engine *engine.Engine
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(logger logging.Logger, eng *engine.Engine) *MetricsHandler {
	return &MetricsHandler{logger: logger, engine: eng}
}

// Metrics godoc
// @Summary Get engine metrics
// @Description Returns schedule-table size and execution counters since process start
// @Tags System
// @Produce json
// @Success 200 {object} engine.Metrics
// @Router /metrics [get]
func (h *MetricsHandler) Metrics(c *gin.Context) {
	response.OK(c, h.engine.Metrics())
}
