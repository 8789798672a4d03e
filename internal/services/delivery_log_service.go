// internal/services/delivery_log_service.go
// 歡迎信發送紀錄服務

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"welcome-mailer/internal/models"
)

// DeliveryLogService 歡迎信發送紀錄服務
type DeliveryLogService struct {
	db *gorm.DB
}

// NewDeliveryLogService 建立發送紀錄服務
func NewDeliveryLogService(db *gorm.DB) *DeliveryLogService {
	return &DeliveryLogService{db: db}
}

// HistoryQuery 歷史查詢條件
type HistoryQuery struct {
	Page     int
	Limit    int
	Status   string
	ClientID string
}

// NewDelivery 由郵件與發送結果建立紀錄 (尚未寫入資料庫)
func NewDelivery(msg *models.Message, result *models.SendResult, provider string, sendErr error) *models.WelcomeDelivery {
	delivery := &models.WelcomeDelivery{
		ID:          uuid.New(),
		Recipient:   strings.ToLower(msg.To),
		FromAddress: msg.From,
		Subject:     msg.Subject,
		Provider:    provider,
		Status:      models.DeliveryStatusFailed,
	}

	if result != nil {
		if result.Provider != "" {
			delivery.Provider = result.Provider
		}
		delivery.VendorID = result.VendorID
		delivery.Overridden = result.Overridden
		if result.Success {
			delivery.Status = models.DeliveryStatusSent
		}
	}
	if sendErr != nil {
		delivery.Status = models.DeliveryStatusFailed
		delivery.ErrorMessage = sendErr.Error()
	}

	return delivery
}

// Record 寫入發送紀錄
func (s *DeliveryLogService) Record(ctx context.Context, delivery *models.WelcomeDelivery) error {
	if err := s.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return fmt.Errorf("failed to create delivery record: %w", err)
	}
	return nil
}

// Latest 取得收件人最近一筆紀錄
func (s *DeliveryLogService) Latest(ctx context.Context, recipient string) (*models.WelcomeDelivery, error) {
	var delivery models.WelcomeDelivery
	err := s.db.WithContext(ctx).
		Where("recipient = ?", strings.ToLower(recipient)).
		Order("created_at DESC").
		First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStatusNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// History 分頁查詢發送紀錄
func (s *DeliveryLogService) History(ctx context.Context, q HistoryQuery) ([]models.WelcomeDelivery, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	// 每次查詢建立新的 chain，避免 Count 影響後續查詢
	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.WelcomeDelivery{})
		if q.ClientID != "" {
			query = query.Where("client_id = ?", q.ClientID)
		}
		if q.Status != "" {
			query = query.Where("status = ?", q.Status)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deliveries []models.WelcomeDelivery
	err := filtered().Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, 0, err
	}

	return deliveries, total, nil
}

// AutoMigrate 建立資料表
func (s *DeliveryLogService) AutoMigrate() error {
	return s.db.AutoMigrate(&models.WelcomeDelivery{})
}

// Ping 檢查資料庫連接
func (s *DeliveryLogService) Ping(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}
