// internal/services/token_service.go
// API Token 簽發、驗證與撤銷服務

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

const (
	// TokenIssuer JWT 簽發者
	TokenIssuer = "welcome-mailer"
	// AdminClientID 固定的 Admin Client ID
	AdminClientID = "welcome-admin"
)

var (
	// ErrInvalidToken Token 無效 (簽章、簽發者或到期時間錯誤)
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenRevoked Token 已撤銷、已被取代或不存在於資料庫
	ErrTokenRevoked = errors.New("token has been revoked or is inactive")
)

// TokenService API Token 服務
type TokenService struct {
	cfg   *config.Config
	store TokenStore
	now   func() time.Time
}

// NewTokenService 建立 Token 服務
func NewTokenService(cfg *config.Config, store TokenStore) *TokenService {
	return &TokenService{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
}

// HashToken 計算 token 的 SHA-256 hash
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Issue 簽發新的 Client Token 並寫入資料庫
func (s *TokenService) Issue(ctx context.Context, clientName string, permissions []string) (string, *models.ClientToken, error) {
	record := &models.ClientToken{
		ID:          uuid.New(),
		ClientID:    fmt.Sprintf("client_%s", uuid.New().String()[:8]),
		ClientName:  clientName,
		Permissions: pq.StringArray(permissions),
		IsActive:    true,
	}

	token, err := s.sign(record)
	if err != nil {
		return "", nil, err
	}

	if err := s.store.Create(ctx, record); err != nil {
		return "", nil, err
	}
	return token, record, nil
}

// sign 簽署 JWT 並將 hash、建立與到期時間寫回 record
func (s *TokenService) sign(record *models.ClientToken) (string, error) {
	issuedAt := s.now()

	claims := jwt.MapClaims{
		"iss":         TokenIssuer,
		"sub":         uuid.New().String(),
		"iat":         issuedAt.Unix(),
		"client_id":   record.ClientID,
		"client_name": record.ClientName,
		"permissions": []string(record.Permissions),
	}

	record.ExpiresAt = nil
	if s.cfg.TokenTTL > 0 {
		expiresAt := issuedAt.Add(s.cfg.TokenTTL)
		claims["exp"] = expiresAt.Unix()
		record.ExpiresAt = &expiresAt
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	record.TokenHash = HashToken(signed)
	record.CreatedAt = issuedAt
	return signed, nil
}

// Parse 驗證簽章並解析 Token (不查詢資料庫)
func (s *TokenService) Parse(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 確認簽名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &models.JWTClaims{Issuer: TokenIssuer}
	claims.Subject, _ = mapClaims["sub"].(string)
	claims.ClientID, _ = mapClaims["client_id"].(string)
	claims.ClientName, _ = mapClaims["client_name"].(string)
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = int64(iat)
	}
	if claims.ClientID == "" {
		return nil, ErrInvalidToken
	}

	// 轉換權限列表
	if perms, ok := mapClaims["permissions"].([]interface{}); ok {
		for _, p := range perms {
			if str, ok := p.(string); ok {
				claims.Permissions = append(claims.Permissions, str)
			}
		}
	}

	return claims, nil
}

// Authenticate 驗證 Token 並確認資料庫中仍為有效狀態
// 同一 client 重新簽發後，舊 token 的 hash 不再相符
func (s *TokenService) Authenticate(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	record, err := s.store.FindByClientID(ctx, claims.ClientID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	if !record.IsActive || record.TokenHash != HashToken(tokenString) || record.Expired(s.now()) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Get 查詢 Token 資訊
func (s *TokenService) Get(ctx context.Context, idOrClientID string) (*models.ClientToken, error) {
	return s.store.Find(ctx, idOrClientID)
}

// List 列出所有 Token
func (s *TokenService) List(ctx context.Context) ([]models.ClientToken, error) {
	return s.store.List(ctx)
}

// Revoke 撤銷 Token
func (s *TokenService) Revoke(ctx context.Context, idOrClientID string) error {
	revoked, err := s.store.Revoke(ctx, idOrClientID, s.now())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if !revoked {
		return ErrTokenNotFound
	}

	log.Info().Str("token", idOrClientID).Msg("[Auth] client token revoked")
	return nil
}

// InitializeAdminToken 初始化 Admin Token
// 不存在時建立並輸出到 logs；已存在且有效則跳過；已撤銷或過期則重新簽發
func (s *TokenService) InitializeAdminToken(ctx context.Context) (string, error) {
	if !s.cfg.InitAdminToken {
		log.Info().Msg("[Admin Token] INIT_ADMIN_TOKEN=false, skipping initialization")
		return "", nil
	}

	existing, err := s.store.FindByClientID(ctx, AdminClientID)
	switch {
	case err == nil && existing.IsActive && !existing.Expired(s.now()):
		log.Info().
			Str("client_id", existing.ClientID).
			Str("client_name", existing.ClientName).
			Time("created_at", existing.CreatedAt).
			Msg("[Admin Token] admin token already exists and is active (only its hash is stored)")
		return "", nil

	case err == nil:
		log.Info().Msg("[Admin Token] found revoked or expired admin token, regenerating...")
		existing.ClientName = s.cfg.AdminTokenName
		existing.Permissions = pq.StringArray{models.PermissionAdmin}
		existing.IsActive = true
		existing.RevokedAt = nil

		token, err := s.sign(existing)
		if err != nil {
			return "", err
		}
		if err := s.store.Save(ctx, existing); err != nil {
			return "", err
		}
		s.printToken(token, existing)
		return token, nil

	case !errors.Is(err, ErrTokenNotFound):
		return "", err
	}

	record := &models.ClientToken{
		ID:          uuid.New(),
		ClientID:    AdminClientID,
		ClientName:  s.cfg.AdminTokenName,
		Permissions: pq.StringArray{models.PermissionAdmin},
		IsActive:    true,
	}
	token, err := s.sign(record)
	if err != nil {
		return "", err
	}
	if err := s.store.Create(ctx, record); err != nil {
		return "", err
	}

	s.printToken(token, record)
	return token, nil
}

// printToken 輸出 Token 到 logs (只在建立或重新簽發時)
func (s *TokenService) printToken(token string, record *models.ClientToken) {
	separator := strings.Repeat("=", 80)

	log.Info().Msg(separator)
	event := log.Info().
		Str("client_id", record.ClientID).
		Str("client_name", record.ClientName).
		Strs("permissions", record.Permissions).
		Time("created_at", record.CreatedAt)
	if record.ExpiresAt != nil {
		event = event.Time("expires_at", *record.ExpiresAt)
	}
	event.Msg("[Admin Token] admin token created, copy it now, it will not be shown again")
	log.Info().Msgf("[Admin Token] %s", token)
	log.Info().Msg(separator)
}
