package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/app/services"
	"github.com/yigit/enrollplan/internal/middleware"
)

// ScheduleController handles candidate schedule checks
type ScheduleController struct {
	planningService *services.PlanningService
	logger          zerolog.Logger
}

// NewScheduleController creates a new ScheduleController
func NewScheduleController(planningService *services.PlanningService, logger zerolog.Logger) *ScheduleController {
	return &ScheduleController{
		planningService: planningService,
		logger:          logger,
	}
}

// DetectConflicts handles schedule conflict detection
// @Summary Detect schedule conflicts
// @Description Reports every pair of sections whose meetings overlap on a shared day
// @Tags planning
// @Accept json
// @Produce json
// @Param request body dto.ConflictCheckRequest true "Candidate schedule"
// @Success 200 {object} dto.APIResponse{data=dto.ConflictResponse} "Conflict report"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 404 {object} dto.APIResponse "Unknown CRN"
// @Router /schedules/conflicts [post]
func (c *ScheduleController) DetectConflicts(ctx *gin.Context) {
	var req dto.ConflictCheckRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if req.CRNs == nil {
		req.CRNs = []string{}
	}

	result, err := c.planningService.DetectConflicts(ctx.Request.Context(), req.CRNs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Debug().Int("sections", len(req.CRNs)).Int("conflicts", len(result.Conflicts)).Msg("Schedule checked")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
