// internal/models/client.go
// Client Token 資料模型

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ClientToken Client Token 資料模型
// 只保存 token 的 SHA-256 hash，原始 token 僅在簽發時回傳一次
type ClientToken struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID    string         `json:"client_id" gorm:"uniqueIndex;not null"`
	ClientName  string         `json:"client_name" gorm:"not null"`
	Permissions pq.StringArray `json:"permissions" gorm:"type:text[];not null"`
	TokenHash   string         `json:"-" gorm:"not null"`
	IsActive    bool           `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	RevokedAt   *time.Time     `json:"revoked_at,omitempty"`
}

// TableName 指定資料表名稱
func (ClientToken) TableName() string {
	return "client_tokens"
}

// Expired 是否已過期 (未設定到期時間者永不過期)
func (t *ClientToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// JWTClaims JWT Token Claims
type JWTClaims struct {
	Issuer      string   `json:"iss"`
	Subject     string   `json:"sub"`
	IssuedAt    int64    `json:"iat"`
	ClientID    string   `json:"client_id"`
	ClientName  string   `json:"client_name"`
	Permissions []string `json:"permissions"`
}

// HasPermission 檢查是否具備指定權限 (admin 擁有全部權限)
func (c *JWTClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission || p == PermissionAdmin {
			return true
		}
	}
	return false
}

const (
	PermissionAdmin       = "admin"
	PermissionWelcomeSend = "welcome:send"
)

// CreateTokenRequest 建立 Token 請求
type CreateTokenRequest struct {
	ClientName  string   `json:"client_name" binding:"required"`
	Permissions []string `json:"permissions" binding:"required,min=1"`
}

// CreateTokenResponse 建立 Token 回應
type CreateTokenResponse struct {
	Token     string     `json:"token"`
	ClientID  string     `json:"client_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
