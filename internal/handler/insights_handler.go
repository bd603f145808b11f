package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ash-tracker/behavior-api/internal/service"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
	"github.com/ash-tracker/behavior-api/pkg/response"
)

// InsightsHandler exposes the derived-statistics endpoint.
type InsightsHandler struct {
	insights *service.InsightsService
}

// NewInsightsHandler constructs InsightsHandler.
func NewInsightsHandler(insights *service.InsightsService) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

// Get godoc
// @Summary Behavior insights for a child
// @Tags Insights
// @Produce json
// @Param id path string true "Child ID"
// @Param days query int false "Window size: 7, 30 or 90 (default 30)"
// @Success 200 {object} response.Envelope
// @Router /children/{id}/insights [get]
func (h *InsightsHandler) Get(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be an integer"))
			return
		}
		days = parsed
	}
	insights, err := h.insights.Get(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, insights, nil)
}
