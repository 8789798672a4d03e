// internal/services/keydb_service.go
// KeyDB 狀態快取服務

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

// KeyDBService KeyDB 服務
type KeyDBService struct {
	cfg    *config.Config
	client *redis.Client
}

// NewKeyDBService 建立 KeyDB 服務
func NewKeyDBService(cfg *config.Config) (*KeyDBService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.KeyDBURL,
		Password: cfg.KeyDBPassword,
		DB:       0,
	})

	// 測試連接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to KeyDB: %w", err)
	}

	return NewKeyDBServiceWithClient(cfg, client), nil
}

// NewKeyDBServiceWithClient 以既有的 redis client 建立 KeyDB 服務
func NewKeyDBServiceWithClient(cfg *config.Config, client *redis.Client) *KeyDBService {
	return &KeyDBService{
		cfg:    cfg,
		client: client,
	}
}

func statusKey(recipient string) string {
	return fmt.Sprintf("welcome:status:%s", strings.ToLower(recipient))
}

// SetStatus 設定收件人最近一次歡迎信狀態
func (s *KeyDBService) SetStatus(ctx context.Context, delivery *models.WelcomeDelivery) error {
	statusCache := models.WelcomeStatusCache{
		DeliveryID:   delivery.ID.String(),
		Recipient:    delivery.Recipient,
		Provider:     delivery.Provider,
		Status:       string(delivery.Status),
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
		ErrorMessage: delivery.ErrorMessage,
	}

	data, err := json.Marshal(statusCache)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	return s.client.Set(ctx, statusKey(delivery.Recipient), data, s.cfg.KeyDBStatusTTL).Err()
}

// GetStatus 取得收件人最近一次歡迎信狀態
func (s *KeyDBService) GetStatus(ctx context.Context, recipient string) (*models.WelcomeStatusCache, error) {
	data, err := s.client.Get(ctx, statusKey(recipient)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	var status models.WelcomeStatusCache
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

// Ping 檢查連接
func (s *KeyDBService) Ping(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

// Close 關閉連接
func (s *KeyDBService) Close() error {
	return s.client.Close()
}
