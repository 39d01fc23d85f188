package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/app/services"
	"github.com/yigit/enrollplan/internal/middleware"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// TranscriptController handles transcript upload and eligibility endpoints
type TranscriptController struct {
	transcriptService *services.TranscriptService
	planningService   *services.PlanningService
	maxUploadBytes    int64
	logger            zerolog.Logger
}

// NewTranscriptController creates a new TranscriptController
func NewTranscriptController(transcriptService *services.TranscriptService, planningService *services.PlanningService, maxUploadBytes int64, logger zerolog.Logger) *TranscriptController {
	return &TranscriptController{
		transcriptService: transcriptService,
		planningService:   planningService,
		maxUploadBytes:    maxUploadBytes,
		logger:            logger,
	}
}

// UploadTranscript handles transcript upload
// @Summary Upload transcript
// @Description Stores a transcript document (text, CSV, PDF or image) and ingests it against the current catalog
// @Tags transcripts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Transcript document"
// @Success 201 {object} dto.APIResponse{data=models.TranscriptRecord} "Processed record"
// @Failure 400 {object} dto.APIResponse "Missing or oversized file"
// @Failure 422 {object} dto.APIResponse "No transcript could be extracted"
// @Failure 429 {object} dto.APIResponse "Upload rate exceeded"
// @Router /transcripts [post]
func (c *TranscriptController) UploadTranscript(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("file is required"))
		return
	}
	if c.maxUploadBytes > 0 && file.Size > c.maxUploadBytes {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("file exceeds the upload size limit"))
		return
	}

	rec, err := c.transcriptService.Upload(ctx.Request.Context(), userID, file)
	if err != nil {
		if rec != nil {
			c.logger.Warn().Err(err).Str("recordID", rec.ID.String()).Msg("Transcript ingestion failed")
		}
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("userID", userID).Str("recordID", rec.ID.String()).Int("lines", len(rec.Lines)).Msg("Transcript ingested")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(rec))
}

// ListTranscripts handles listing the caller's transcripts
// @Summary List transcripts
// @Tags transcripts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.TranscriptSummary} "Records, newest first"
// @Router /transcripts [get]
func (c *TranscriptController) ListTranscripts(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}

	records, err := c.transcriptService.ListRecords(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	summaries := make([]dto.TranscriptSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, dto.NewTranscriptSummary(rec))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summaries))
}

// GetTranscript handles transcript detail
// @Summary Get transcript
// @Tags transcripts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} dto.APIResponse{data=models.TranscriptRecord} "Record"
// @Failure 404 {object} dto.APIResponse "Record not found"
// @Router /transcripts/{id} [get]
func (c *TranscriptController) GetTranscript(ctx *gin.Context) {
	userID, id, ok := c.recordParams(ctx)
	if !ok {
		return
	}

	rec, err := c.transcriptService.GetRecord(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(rec))
}

// CheckEligibility handles prerequisite evaluation against a transcript
// @Summary Check eligibility
// @Description Evaluates a course's prerequisites against the courses passed on a processed transcript
// @Tags planning
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param code path string true "Course code"
// @Success 200 {object} dto.APIResponse{data=dto.EligibilityResponse} "Eligibility"
// @Failure 404 {object} dto.APIResponse "Record or course not found"
// @Failure 409 {object} dto.APIResponse "Record not processed"
// @Router /transcripts/{id}/eligibility/{code} [get]
func (c *TranscriptController) CheckEligibility(ctx *gin.Context) {
	userID, id, ok := c.recordParams(ctx)
	if !ok {
		return
	}

	result, err := c.planningService.CheckEligibility(ctx.Request.Context(), id, userID, ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}

func (c *TranscriptController) recordParams(ctx *gin.Context) (string, uuid.UUID, bool) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("invalid record id"))
		return "", uuid.Nil, false
	}
	return userID, id, true
}
