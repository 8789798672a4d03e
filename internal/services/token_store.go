// internal/services/token_store.go
// Client Token 儲存 (PostgreSQL)

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"welcome-mailer/internal/models"
)

// ErrTokenNotFound 查無 Token 紀錄
var ErrTokenNotFound = errors.New("token not found")

// TokenStore Client Token 儲存介面
type TokenStore interface {
	Create(ctx context.Context, token *models.ClientToken) error
	Save(ctx context.Context, token *models.ClientToken) error
	FindByClientID(ctx context.Context, clientID string) (*models.ClientToken, error)
	Find(ctx context.Context, idOrClientID string) (*models.ClientToken, error)
	List(ctx context.Context) ([]models.ClientToken, error)
	Revoke(ctx context.Context, idOrClientID string, at time.Time) (bool, error)
}

// GormTokenStore 以 gorm 實作的 TokenStore
type GormTokenStore struct {
	db *gorm.DB
}

// NewGormTokenStore 建立 Token 儲存
func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

// AutoMigrate 建立資料表
func (s *GormTokenStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.ClientToken{})
}

// Create 新增 Token 紀錄
func (s *GormTokenStore) Create(ctx context.Context, token *models.ClientToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Save 更新 Token 紀錄
func (s *GormTokenStore) Save(ctx context.Context, token *models.ClientToken) error {
	if err := s.db.WithContext(ctx).Save(token).Error; err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}

// FindByClientID 以 client_id 查詢
func (s *GormTokenStore) FindByClientID(ctx context.Context, clientID string) (*models.ClientToken, error) {
	var token models.ClientToken
	err := s.db.WithContext(ctx).Where("client_id = ?", clientID).First(&token).Error
	return s.found(&token, err)
}

// Find 以 client_id 或 UUID 查詢
func (s *GormTokenStore) Find(ctx context.Context, idOrClientID string) (*models.ClientToken, error) {
	var token models.ClientToken
	err := s.byIdentifier(s.db.WithContext(ctx), idOrClientID).First(&token).Error
	return s.found(&token, err)
}

// List 列出所有 Token
func (s *GormTokenStore) List(ctx context.Context) ([]models.ClientToken, error) {
	var tokens []models.ClientToken
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// Revoke 撤銷 Token，回傳是否有紀錄被更新
func (s *GormTokenStore) Revoke(ctx context.Context, idOrClientID string, at time.Time) (bool, error) {
	query := s.byIdentifier(s.db.WithContext(ctx).Model(&models.ClientToken{}), idOrClientID)

	result := query.Updates(map[string]interface{}{
		"is_active":  false,
		"revoked_at": at,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// byIdentifier 先比對 client_id，識別碼為 UUID 時也比對 id
func (s *GormTokenStore) byIdentifier(query *gorm.DB, idOrClientID string) *gorm.DB {
	if _, err := uuid.Parse(idOrClientID); err == nil {
		return query.Where("client_id = ? OR id = ?", idOrClientID, idOrClientID)
	}
	return query.Where("client_id = ?", idOrClientID)
}

func (s *GormTokenStore) found(token *models.ClientToken, err error) (*models.ClientToken, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return token, nil
}
