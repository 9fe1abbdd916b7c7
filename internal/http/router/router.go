package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/tender-portal/internal/config"
	"github.com/ignatzorin/tender-portal/internal/http/middleware"
	"github.com/ignatzorin/tender-portal/internal/interface/http/handler"
	"github.com/ignatzorin/tender-portal/internal/service"
)

// Handlers собирает все HTTP хэндлеры портала.
type Handlers struct {
	Auth         *handler.AuthHandler
	Tender       *handler.TenderHandler
	Submission   *handler.SubmissionHandler
	Notification *handler.NotificationHandler
	WS           *handler.WSHandler
	Health       *handler.HealthHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokenManager *service.TokenManager,
	rateLimitStore limiter.Store,
	log logrus.FieldLogger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)
	api.POST("/auth/login", middleware.RateLimitMiddleware(rateLimitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod), h.Auth.Login)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		tenders := protected.Group("/tenders")
		tenders.POST("", h.Tender.CreateTender)
		tenders.GET("", h.Tender.ListTenders)
		tenders.GET("/:id", middleware.UUIDValidator("id"), h.Tender.GetTender)
		tenders.GET("/:id/stats", middleware.UUIDValidator("id"), h.Tender.GetTenderStats)
		tenders.POST("/:id/publish", middleware.UUIDValidator("id"), h.Tender.PublishTender)
		tenders.POST("/:id/evaluation", middleware.UUIDValidator("id"), h.Tender.StartEvaluation)
		tenders.POST("/:id/award", middleware.UUIDValidator("id"), h.Tender.AwardTender)
		tenders.POST("/:id/reject", middleware.UUIDValidator("id"), h.Tender.RejectTender)
		tenders.POST("/:id/close", middleware.UUIDValidator("id"), h.Tender.CloseTender)
		tenders.DELETE("/:id", middleware.UUIDValidator("id"), h.Tender.DeleteTender)

		submissions := protected.Group("/submissions")
		submissions.POST("", h.Submission.CreateSubmission)
		submissions.GET("", h.Submission.ListSubmissions)
		submissions.GET("/:id", middleware.UUIDValidator("id"), h.Submission.GetSubmission)
		submissions.POST("/:id/review", middleware.UUIDValidator("id"), h.Submission.StartReview)
		submissions.POST("/:id/evaluate", middleware.UUIDValidator("id"), h.Submission.EvaluateSubmission)
		submissions.POST("/:id/award", middleware.UUIDValidator("id"), h.Submission.AwardSubmission)
		submissions.POST("/:id/reject", middleware.UUIDValidator("id"), h.Submission.RejectSubmission)

		notifications := protected.Group("/notifications")
		notifications.GET("/templates", h.Notification.ListTemplates)
		notifications.POST("/recipients", h.Notification.PreviewRecipients)
		notifications.POST("/preview", h.Notification.PreviewMessage)

		// Запуск и повтор рассылки ограничены по частоте на администратора.
		runLimit := middleware.RateLimitMiddleware(rateLimitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)
		notifications.POST("/jobs", runLimit, h.Notification.StartJob)
		notifications.GET("/jobs/:id", middleware.UUIDValidator("id"), h.Notification.GetJob)
		notifications.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), h.Notification.CancelJob)
		notifications.POST("/jobs/:id/retry", middleware.UUIDValidator("id"), runLimit, h.Notification.RetryJob)
	}

	return r
}
