// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/app/services"
	"github.com/yigit/enrollplan/internal/middleware"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// CatalogController handles catalog browsing endpoints
type CatalogController struct {
	catalogService  *services.CatalogService
	planningService *services.PlanningService
	logger          zerolog.Logger
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService, planningService *services.PlanningService, logger zerolog.Logger) *CatalogController {
	return &CatalogController{
		catalogService:  catalogService,
		planningService: planningService,
		logger:          logger,
	}
}

// SearchCourses handles catalog search
// @Summary Search courses
// @Description Finds courses whose code or title contains q and that have a section meeting on every given day
// @Tags catalog
// @Produce json
// @Param q query string false "Code or title fragment"
// @Param day query []string false "Meeting day (M, TUE, Wednesday...)" collectionFormat(multi)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Matching courses"
// @Failure 400 {object} dto.APIResponse "Invalid query"
// @Failure 503 {object} dto.APIResponse "Catalog not loaded"
// @Router /courses [get]
func (c *CatalogController) SearchCourses(ctx *gin.Context) {
	var req dto.CourseSearchRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}

	days := make([]models.Weekday, 0, len(req.Days))
	for _, raw := range req.Days {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError(err.Error()))
			return
		}
		days = append(days, day)
	}

	result, err := c.catalogService.SearchCourses(ctx.Request.Context(), req.Query, days, req.Page, req.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// GetCourse handles course detail
// @Summary Get course
// @Description Returns a course with its prerequisite expression and sections
// @Tags catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} dto.APIResponse{data=dto.CourseResponse} "Course"
// @Failure 404 {object} dto.APIResponse "Course not found"
// @Router /courses/{code} [get]
func (c *CatalogController) GetCourse(ctx *gin.Context) {
	course, err := c.catalogService.GetCourse(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// ListSections handles the sections of a course
// @Summary List course sections
// @Tags catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} dto.APIResponse{data=[]models.Section} "Sections"
// @Failure 404 {object} dto.APIResponse "Course not found"
// @Router /courses/{code}/sections [get]
func (c *CatalogController) ListSections(ctx *gin.Context) {
	sections, err := c.catalogService.ListSections(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(sections))
}

// GetPrerequisites handles prerequisite resolution
// @Summary Resolve prerequisites
// @Description Expands the full prerequisite tree of a course. Cycles, missing courses and truncated branches are flagged, never fatal.
// @Tags planning
// @Produce json
// @Param code path string true "Course code"
// @Param maxDepth query int false "Depth limit, capped by the server default"
// @Success 200 {object} dto.APIResponse{data=dto.PrerequisiteResponse} "Prerequisite tree"
// @Failure 400 {object} dto.APIResponse "Invalid depth"
// @Failure 404 {object} dto.APIResponse "Course not found"
// @Router /courses/{code}/prerequisites [get]
func (c *CatalogController) GetPrerequisites(ctx *gin.Context) {
	maxDepth := 0
	if raw := ctx.Query("maxDepth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("maxDepth must be a positive integer"))
			return
		}
		maxDepth = v
	}

	result, err := c.planningService.ResolvePrerequisites(ctx.Request.Context(), ctx.Param("code"), maxDepth)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

// RefreshCatalog reloads the catalog snapshot
// @Summary Refresh catalog
// @Description Drops the shared snapshot cache and reloads the catalog from the store
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CatalogRefreshResponse} "New snapshot"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Admin role required"
// @Router /catalog/refresh [post]
func (c *CatalogController) RefreshCatalog(ctx *gin.Context) {
	result, err := c.catalogService.Refresh(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	userID, _ := middleware.UserID(ctx)
	c.logger.Info().Str("userID", userID).Int("courses", result.Courses).Msg("Catalog refresh requested")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
