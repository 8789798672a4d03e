// internal/api/handlers/context.go

package handlers

import (
	"github.com/gin-gonic/gin"

	"welcome-mailer/internal/models"
)

// ClaimsKey gin context 中存放 JWT Claims 的 key
const ClaimsKey = "claims"

// ClaimsFrom 取得認證中介軟體寫入的 Claims
func ClaimsFrom(c *gin.Context) (*models.JWTClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.JWTClaims)
	return claims, ok && claims != nil
}
