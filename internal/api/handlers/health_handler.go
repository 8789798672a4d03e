// internal/api/handlers/health_handler.go
// 健康檢查 Handler

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/services"
)

// HealthHandler 健康檢查 Handler
type HealthHandler struct {
	cfg          *config.Config
	mailRouter   *services.MailRouter
	deliveryLog  *services.DeliveryLogService
	keydbService *services.KeyDBService
}

// NewHealthHandler 建立 Health Handler
func NewHealthHandler(cfg *config.Config, mailRouter *services.MailRouter, deliveryLog *services.DeliveryLogService, keydbService *services.KeyDBService) *HealthHandler {
	return &HealthHandler{
		cfg:          cfg,
		mailRouter:   mailRouter,
		deliveryLog:  deliveryLog,
		keydbService: keydbService,
	}
}

// Health 回報郵件服務設定與各依賴服務的連線狀態
// 郵件服務設定不完整時 (demo 模式除外) 視為 degraded
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{
		"mail_provider": "ok",
		"postgresql":    "ok",
		"keydb":         "ok",
	}
	healthy := true

	provider := services.ProviderStatus{Name: h.cfg.MailProvider, DemoMode: h.cfg.MailDemoMode}
	if h.mailRouter != nil {
		provider = h.mailRouter.Status()
	}
	if !provider.Configured && !provider.DemoMode {
		checks["mail_provider"] = "error"
		healthy = false
	}

	if h.deliveryLog == nil || !h.deliveryLog.Ping(ctx) {
		checks["postgresql"] = "error"
		healthy = false
	}

	if h.keydbService == nil || !h.keydbService.Ping(ctx) {
		checks["keydb"] = "error"
		healthy = false
	}

	status, statusCode := "healthy", http.StatusOK
	if !healthy {
		status, statusCode = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":        status,
		"mail_provider": provider,
		"services":      checks,
	})
}
