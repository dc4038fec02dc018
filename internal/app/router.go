package app

import (
	"dsa_hub_backend/docs"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/internal/middleware"
	"dsa_hub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerAuthRoutes(authGroup, c)
		a.registerTopicRoutes(authGroup, c)
		a.registerContentRoutes(authGroup, c)
		a.registerQuizRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/signup", c.auth.Signup)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/content/health/ollama", c.content.OllamaHealth)
	}
}

func (a *App) registerAuthRoutes(group *gin.RouterGroup, c *controllers) {
	auth := group.Group("/auth")
	{
		auth.POST("/logout", c.auth.Logout)
		auth.GET("/check-auth", c.auth.CheckAuth)
		auth.GET("/profile", c.auth.GetProfile)
		auth.PUT("/profile/update", c.auth.UpdateProfile)
		auth.PUT("/profile/streak", c.auth.UpdateStreak)
		auth.PUT("/change-password", c.auth.ChangePassword)
		auth.POST("/analytics/session", c.auth.RecordSession)
		auth.GET("/analytics/total-time", c.auth.TotalTime)
	}
}

func (a *App) registerTopicRoutes(group *gin.RouterGroup, c *controllers) {
	topic := group.Group("/topic")
	{
		topic.POST("/initialize", c.topic.Initialize)
		topic.GET("", c.topic.List)
		topic.GET("/stats", c.topic.Stats)
		topic.PUT("/:topicId/progress", c.topic.UpdateProgress)
		topic.PUT("/:topicId/reset", c.topic.Reset)
		topic.POST("/createAttempt", c.topic.CreateAttempt)
		topic.GET("/getUserAttempts", c.topic.GetUserAttempts)
	}
}

func (a *App) registerContentRoutes(group *gin.RouterGroup, c *controllers) {
	content := group.Group("/content")
	{
		content.POST("/upload/pdf", c.content.UploadPDF)
		content.POST("/upload/image", c.content.UploadImage)
		content.POST("/upload/video", c.content.UploadVideo)
		content.POST("/upload/youtube", c.content.UploadYouTube)

		content.POST("/generate-quiz", c.content.GenerateQuiz)
		content.POST("/generate-prerequisites", c.content.GeneratePrerequisites)

		content.GET("/content", c.content.List)
		content.GET("/content/:id", c.content.Get)
		content.GET("/content/:id/status", c.content.Status)
		content.DELETE("/content/:id", c.content.Delete)

		content.GET("/quiz/:id", c.content.GetQuiz)
		content.GET("/quizzes", c.content.ListQuizzes)
	}
}

func (a *App) registerQuizRoutes(group *gin.RouterGroup, c *controllers) {
	quiz := group.Group("/quiz")
	{
		quiz.POST("/start/topic/:topicId", c.quiz.StartTopic)
		quiz.POST("/start/content/:contentId", c.quiz.StartContent)
		quiz.POST("/retake", c.quiz.Retake)

		quiz.GET("/current", c.quiz.Current)
		quiz.DELETE("/current", c.quiz.Close)
		quiz.POST("/current/answer", c.quiz.Answer)
		quiz.POST("/current/next", c.quiz.Next)
		quiz.POST("/current/advance", c.quiz.Advance)
		quiz.POST("/current/previous", c.quiz.Previous)
		quiz.POST("/current/navigate", c.quiz.Navigate)
		quiz.POST("/current/finish", c.quiz.Finish)

		quiz.GET("/attempts/:subjectId", c.quiz.ListAttempts)
		quiz.GET("/attempts/:subjectId/latest", c.quiz.LatestAttempt)
		quiz.GET("/attempt/:attemptId", c.quiz.GetAttempt)
	}
}
