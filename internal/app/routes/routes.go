package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/enrollplan/internal/app/controllers"
	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/middleware"
	"github.com/yigit/enrollplan/internal/pkg/auth"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	catalogController *controllers.CatalogController,
	scheduleController *controllers.ScheduleController,
	transcriptController *controllers.TranscriptController,
	authMiddleware *middleware.AuthMiddleware,
	uploadLimiter *middleware.UserRateLimiter,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public catalog routes ---
	courses := v1.Group("/courses")
	{
		courses.GET("", catalogController.SearchCourses)
		courses.GET("/:code", catalogController.GetCourse)
		courses.GET("/:code/sections", catalogController.ListSections)
		courses.GET("/:code/prerequisites", catalogController.GetPrerequisites)
	}

	v1.POST("/schedules/conflicts", scheduleController.DetectConflicts)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		transcripts := authenticated.Group("/transcripts")
		{
			transcripts.POST("", uploadLimiter.Middleware(), transcriptController.UploadTranscript)
			transcripts.GET("", transcriptController.ListTranscripts)
			transcripts.GET("/:id", transcriptController.GetTranscript)
			transcripts.GET("/:id/eligibility/:code", transcriptController.CheckEligibility)
		}

		admin := authenticated.Group("/catalog")
		admin.Use(authMiddleware.RoleRequired(auth.RoleAdmin))
		{
			admin.POST("/refresh", catalogController.RefreshCatalog)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
}
