package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// SchedulerConfigHandler reports the generation defaults the worker runs with.
type SchedulerConfigHandler struct {
	defaults scheduler.SchedulerConfig
}

// NewSchedulerConfigHandler builds a new handler.
func NewSchedulerConfigHandler(defaults scheduler.SchedulerConfig) *SchedulerConfigHandler {
	return &SchedulerConfigHandler{defaults: defaults}
}

// Get godoc
// @Summary Effective scheduler defaults
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/config [get]
func (h *SchedulerConfigHandler) Get(c *gin.Context) {
	cfg := h.defaults
	response.JSON(c, http.StatusOK, dto.SchedulerConfigResponse{
		Algorithm:       string(cfg.Algorithm),
		MaxIterations:   cfg.MaxIterations,
		TimeoutSeconds:  cfg.TimeoutSeconds,
		MinQualityScore: cfg.MinQualityScore,
		AllowPartial:    cfg.AllowPartial,
		Weights: dto.SchedulerConfigWeights{
			Distribution: cfg.WeightDistribution,
			Consecutive:  cfg.WeightConsecutive,
			TimeOfDay:    cfg.WeightTimeOfDay,
			DailyLoad:    cfg.WeightDailyLoad,
			Spacing:      cfg.WeightSpacing,
		},
	}, nil)
}
