// internal/services/errors.go
// 郵件服務錯誤定義

package services

import (
	"errors"
	"fmt"
)

var (
	// ErrDeliveryFailed 供應商拒絕或無法完成發送
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUnknownProvider 未知的郵件服務名稱
	ErrUnknownProvider = errors.New("unknown mail provider")

	// ErrProviderNotConfigured 郵件服務缺少必要設定
	ErrProviderNotConfigured = errors.New("mail provider is not configured")

	// ErrStatusNotFound KeyDB 中查無狀態
	ErrStatusNotFound = errors.New("status not found")
)

// DeliveryError 帶有供應商原始錯誤內容的發送錯誤
type DeliveryError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s delivery failed (status %d): %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s delivery failed: %s", e.Provider, e.Detail)
}

// Unwrap 讓 errors.Is(err, ErrDeliveryFailed) 成立
func (e *DeliveryError) Unwrap() error {
	return ErrDeliveryFailed
}

func newDeliveryError(provider string, statusCode int, detail string) *DeliveryError {
	return &DeliveryError{
		Provider:   provider,
		StatusCode: statusCode,
		Detail:     detail,
	}
}
