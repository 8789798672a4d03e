// internal/api/handlers/mail_handler.go
// 歡迎信 API Handler

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/app"
	"welcome-mailer/internal/config"
	"welcome-mailer/internal/metrics"
	"welcome-mailer/internal/models"
	"welcome-mailer/internal/services"
)

// MailHandler 歡迎信 Handler
type MailHandler struct {
	cfg          *config.Config
	mailRouter   *services.MailRouter
	metrics      *metrics.WelcomeMetrics
	deliveryLog  *services.DeliveryLogService
	keydbService *services.KeyDBService
}

// NewMailHandler 建立 Mail Handler
// deliveryLog 與 keydbService 可為 nil (不記錄)
func NewMailHandler(
	cfg *config.Config,
	mailRouter *services.MailRouter,
	welcomeMetrics *metrics.WelcomeMetrics,
	deliveryLog *services.DeliveryLogService,
	keydbService *services.KeyDBService,
) *MailHandler {
	return &MailHandler{
		cfg:          cfg,
		mailRouter:   mailRouter,
		metrics:      welcomeMetrics,
		deliveryLog:  deliveryLog,
		keydbService: keydbService,
	}
}

// WelcomeRequest 發送歡迎信請求
type WelcomeRequest struct {
	To       string `json:"to" binding:"required,email"`
	Provider string `json:"provider,omitempty"`
}

// SendWelcome 發送歡迎信
func (h *MailHandler) SendWelcome(c *gin.Context) {
	var req WelcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	// 未指定時使用 MAIL_PROVIDER
	var (
		sender services.MailSender
		err    error
	)
	if req.Provider != "" {
		sender, err = h.mailRouter.Resolve(req.Provider)
	} else {
		sender, err = h.mailRouter.Default()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unknown_provider",
			"message": err.Error(),
		})
		return
	}

	welcome := app.New(sender, app.WithConfig(h.cfg), app.WithMetrics(h.metrics))
	ctx := c.Request.Context()

	result, sendErr := welcome.SendWelcomeEmailResult(ctx, req.To)
	if sendErr == nil && !result.Success {
		sendErr = &services.DeliveryError{Provider: sender.Name(), StatusCode: result.StatusCode, Detail: "provider reported failure"}
	}

	// 記錄發送結果
	delivery := services.NewDelivery(welcome.WelcomeMessage(req.To), result, sender.Name(), sendErr)
	delivery.ClientID = c.GetString("client_id")
	h.record(c, delivery)

	if sendErr != nil {
		statusCode := http.StatusInternalServerError
		errCode := "send_error"
		var deliveryErr *services.DeliveryError
		if errors.As(sendErr, &deliveryErr) {
			statusCode = http.StatusBadGateway
			errCode = "delivery_failed"
		}

		c.JSON(statusCode, gin.H{
			"success":     false,
			"error":       errCode,
			"delivery_id": delivery.ID.String(),
			"provider":    delivery.Provider,
			"status":      delivery.Status,
			"message":     sendErr.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"delivery_id": delivery.ID.String(),
		"provider":    delivery.Provider,
		"status":      delivery.Status,
		"overridden":  delivery.Overridden,
		"message":     "歡迎信已發送",
	})
}

// record 寫入資料庫與 KeyDB，失敗僅記錄 log (郵件已送出)
func (h *MailHandler) record(c *gin.Context, delivery *models.WelcomeDelivery) {
	ctx := c.Request.Context()

	if h.deliveryLog != nil {
		if err := h.deliveryLog.Record(ctx, delivery); err != nil {
			log.Error().Err(err).Str("delivery_id", delivery.ID.String()).Msg("[Welcome] failed to record delivery")
		}
	}

	if h.keydbService != nil {
		if err := h.keydbService.SetStatus(ctx, delivery); err != nil {
			log.Warn().Err(err).Str("delivery_id", delivery.ID.String()).Msg("[Welcome] failed to cache status")
		}
	}
}

// GetStatus 查詢收件人最近一次歡迎信狀態
func (h *MailHandler) GetStatus(c *gin.Context) {
	email := c.Param("email")
	ctx := c.Request.Context()

	// 先查 KeyDB
	if h.keydbService != nil {
		status, err := h.keydbService.GetStatus(ctx, email)
		if err == nil {
			c.JSON(http.StatusOK, status)
			return
		}
		if !errors.Is(err, services.ErrStatusNotFound) {
			log.Warn().Err(err).Str("recipient", email).Msg("[Welcome] KeyDB lookup failed, falling back to database")
		}
	}

	// 查資料庫
	if h.deliveryLog != nil {
		delivery, err := h.deliveryLog.Latest(ctx, email)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"delivery_id":   delivery.ID.String(),
				"recipient":     delivery.Recipient,
				"provider":      delivery.Provider,
				"status":        delivery.Status,
				"overridden":    delivery.Overridden,
				"created_at":    delivery.CreatedAt,
				"error_message": delivery.ErrorMessage,
			})
			return
		}
		if !errors.Is(err, services.ErrStatusNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "database_error",
				"message": "Failed to query delivery status",
			})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error":   "not_found",
		"message": "No welcome email found for recipient",
	})
}

// GetHistory 查詢發送歷史
// 非 admin 只能看到自己的紀錄
func (h *MailHandler) GetHistory(c *gin.Context) {
	if h.deliveryLog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "history_unavailable",
			"message": "Delivery log is not configured",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	query := services.HistoryQuery{
		Page:   page,
		Limit:  limit,
		Status: c.Query("status"),
	}
	if claims, ok := ClaimsFrom(c); !ok || !claims.HasPermission(models.PermissionAdmin) {
		query.ClientID = c.GetString("client_id")
	}

	deliveries, total, err := h.deliveryLog.History(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "database_error",
			"message": "Failed to query delivery history",
		})
		return
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	} else if query.Limit > 100 {
		query.Limit = 100
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"page":  query.Page,
		"limit": query.Limit,
		"data":  deliveries,
	})
}
