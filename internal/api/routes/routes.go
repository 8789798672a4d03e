// internal/api/routes/routes.go
// Gin 路由註冊

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"welcome-mailer/internal/api/handlers"
	"welcome-mailer/internal/api/middlewares"
	"welcome-mailer/internal/config"
	"welcome-mailer/internal/metrics"
	"welcome-mailer/internal/models"
	"welcome-mailer/internal/services"
)

// Dependencies 路由依賴
type Dependencies struct {
	Config       *config.Config
	MailRouter   *services.MailRouter
	TokenService *services.TokenService
	DeliveryLog  *services.DeliveryLogService
	KeyDBService *services.KeyDBService
	Metrics      *metrics.WelcomeMetrics
	Gatherer     prometheus.Gatherer
}

// RegisterRoutes 註冊所有路由
func RegisterRoutes(router *gin.Engine, deps *Dependencies) {
	// 初始化 Handlers
	healthHandler := handlers.NewHealthHandler(deps.Config, deps.MailRouter, deps.DeliveryLog, deps.KeyDBService)
	mailHandler := handlers.NewMailHandler(deps.Config, deps.MailRouter, deps.Metrics, deps.DeliveryLog, deps.KeyDBService)
	authHandler := handlers.NewAuthHandler(deps.TokenService)

	// 公開路由
	router.GET("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 路由群組
	v1 := router.Group("/api/v1")
	{
		// 歡迎信 API (需認證)
		welcome := v1.Group("/welcome")
		welcome.Use(middlewares.JWTAuth(deps.TokenService))
		welcome.Use(middlewares.RequirePermission(models.PermissionWelcomeSend))
		{
			welcome.POST("", mailHandler.SendWelcome)
			welcome.GET("/status/:email", mailHandler.GetStatus)
			welcome.GET("/history", mailHandler.GetHistory)
		}

		// Token 管理 API (需 admin 權限)
		auth := v1.Group("/auth")
		auth.Use(middlewares.JWTAuth(deps.TokenService))
		auth.Use(middlewares.RequirePermission(models.PermissionAdmin))
		{
			auth.POST("/token", authHandler.CreateToken)
			auth.GET("/token/:id", authHandler.GetToken)
			auth.DELETE("/token/:id", authHandler.RevokeToken)
			auth.GET("/tokens", authHandler.ListTokens)
		}
	}
}
