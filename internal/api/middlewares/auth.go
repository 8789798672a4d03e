// internal/api/middlewares/auth.go
// JWT 認證中介軟體

package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/api/handlers"
	"welcome-mailer/internal/services"
)

// JWTAuth JWT 認證中介軟體
func JWTAuth(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 取得 Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		// 解析 Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid_token_format",
				"message": "Authorization header must be Bearer token",
			})
			return
		}

		// 驗證簽章並確認 Token 仍為 active
		claims, err := tokens.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		switch {
		case errors.Is(err, services.ErrTokenRevoked):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "token_revoked",
				"message": "Token has been revoked or is inactive",
			})
			return
		case errors.Is(err, services.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid_token",
				"message": "Invalid or expired token",
			})
			return
		case err != nil:
			log.Error().Err(err).Msg("[Auth] token verification failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "database_error",
				"message": "Failed to verify token",
			})
			return
		}

		// 設定 context
		c.Set(handlers.ClaimsKey, claims)
		c.Set("client_id", claims.ClientID)
		c.Set("client_name", claims.ClientName)

		c.Next()
	}
}

// RequirePermission 權限檢查中介軟體
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := handlers.ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "no_permissions",
				"message": "No permissions found",
			})
			return
		}

		if !claims.HasPermission(permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "permission_denied",
				"message": "You don't have permission to access this resource",
			})
			return
		}

		c.Next()
	}
}
