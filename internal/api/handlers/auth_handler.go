// internal/api/handlers/auth_handler.go
// Token 管理 API Handler

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/models"
	"welcome-mailer/internal/services"
)

// knownPermissions 可簽發的權限
var knownPermissions = map[string]bool{
	models.PermissionAdmin:       true,
	models.PermissionWelcomeSend: true,
}

// AuthHandler Token 管理 Handler
type AuthHandler struct {
	tokens *services.TokenService
}

// NewAuthHandler 建立 Auth Handler
func NewAuthHandler(tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// CreateToken 建立新 Token
func (h *AuthHandler) CreateToken(c *gin.Context) {
	var req models.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	for _, p := range req.Permissions {
		if !knownPermissions[p] {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "unknown_permission",
				"message": fmt.Sprintf("Unknown permission %q", p),
			})
			return
		}
	}

	token, record, err := h.tokens.Issue(c.Request.Context(), req.ClientName, req.Permissions)
	if err != nil {
		log.Error().Err(err).Msg("[Auth] failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "token_generation_error",
			"message": "Failed to generate token",
		})
		return
	}

	log.Info().
		Str("client_id", record.ClientID).
		Str("client_name", req.ClientName).
		Strs("permissions", req.Permissions).
		Str("issued_by", c.GetString("client_id")).
		Msg("[Auth] client token issued")

	c.JSON(http.StatusCreated, models.CreateTokenResponse{
		Token:     token,
		ClientID:  record.ClientID,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	})
}

// GetToken 查詢 Token 資訊 (id 可為 UUID 或 client_id)
func (h *AuthHandler) GetToken(c *gin.Context) {
	token, err := h.tokens.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// RevokeToken 撤銷 Token
func (h *AuthHandler) RevokeToken(c *gin.Context) {
	if err := h.tokens.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		h.lookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Token 已撤銷",
	})
}

// ListTokens 列出所有 Token
func (h *AuthHandler) ListTokens(c *gin.Context) {
	tokens, err := h.tokens.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("[Auth] failed to list tokens")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "database_error",
			"message": "Failed to list tokens",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": len(tokens),
		"data":  tokens,
	})
}

func (h *AuthHandler) lookupError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrTokenNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "not_found",
			"message": "Token not found",
		})
		return
	}

	log.Error().Err(err).Str("token", c.Param("id")).Msg("[Auth] token lookup failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "database_error",
		"message": "Failed to query token",
	})
}
