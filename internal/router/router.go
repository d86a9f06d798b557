package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/config"
	"github.com/edustack/securexam-backend/internal/handler"
	"github.com/edustack/securexam-backend/internal/middleware"
	"github.com/edustack/securexam-backend/internal/response"
	"github.com/edustack/securexam-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam          *handler.ExamHandler
	StudentPortal *handler.StudentPortalHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(authService *service.AuthService, handlers *Handlers, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to the configured origin list when set, otherwise allow all
	// so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", handler.LockdownFlagHeader}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID middleware runs globally so every response has metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Entry and submission get a per-IP budget; a retry loop on one machine
	// must not starve the cohort.
	entryLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Student Portal (Student JWT) ───────────────────────────────
	portalAPI := router.Group("/api/v1/portal")
	portalAPI.Use(middleware.RequireStudentJWT(authService))
	portalAPI.Use(middleware.SingleDeviceGuard(rdb, log))
	{
		portalAPI.GET("/exams", handlers.StudentPortal.ListAssignedExams)
		portalAPI.POST("/exams/:exam_id/enter", entryLimiter.Middleware(), handlers.StudentPortal.EnterExam)
		portalAPI.GET("/exams/:exam_id/state", handlers.StudentPortal.GetExamState)
		portalAPI.GET("/exams/:exam_id/result", handlers.StudentPortal.GetResult)
		portalAPI.GET("/attempts", handlers.StudentPortal.ListMyAttempts)
		portalAPI.PATCH("/attempts/:attempt_id/answers", handlers.StudentPortal.UpdateAnswers)
		portalAPI.POST("/attempts/:attempt_id/submit", entryLimiter.Middleware(), handlers.StudentPortal.SubmitAttempt)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	ws.Use(middleware.SingleDeviceGuard(rdb, log))
	{
		ws.GET("/portal/exams/:exam_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		adminAPI.PUT("/exams/:exam_id", handlers.Exam.UpdateExam)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.DeleteExam)

		adminAPI.GET("/exams/:exam_id/assignments", handlers.Exam.ListAssignments)
		adminAPI.POST("/exams/:exam_id/assignments", handlers.Exam.AssignExam)
		adminAPI.DELETE("/exams/:exam_id/assignments", handlers.Exam.UnassignExam)

		adminAPI.GET("/exams/:exam_id/attempts", handlers.Exam.ListAttempts)
		adminAPI.GET("/attempts/:attempt_id/activity", handlers.Exam.GetAttemptActivity)

		adminAPI.GET("/exams/:exam_id/lockdown-config", handlers.Exam.DownloadLockdownConfig)
		adminAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.MonitorExamSSE)
	}

	return router
}
