// internal/models/mail.go
// 郵件資料模型

package models

import (
	"time"

	"github.com/google/uuid"
)

// Message 單封郵件內容
// 只有收件人、寄件人、主旨與純文字內文四個欄位
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendResult 郵件服務回傳的發送結果
type SendResult struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`

	// 供應商原始回應
	StatusCode   int    `json:"status_code,omitempty"`
	VendorID     string `json:"vendor_id,omitempty"`
	VendorStatus string `json:"vendor_status,omitempty"`
	Raw          string `json:"raw,omitempty"`

	// Overridden 為 true 時 Success 由 demo 模式覆寫，真實結果記錄於 RawSuccess
	Overridden bool `json:"overridden,omitempty"`
	RawSuccess bool `json:"raw_success"`
}

// DeliveryStatus 歡迎信發送狀態
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// WelcomeDelivery 歡迎信發送紀錄
type WelcomeDelivery struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Recipient    string         `json:"recipient" gorm:"index;not null"`
	FromAddress  string         `json:"from" gorm:"column:from_address;not null"`
	Subject      string         `json:"subject" gorm:"not null"`
	Provider     string         `json:"provider" gorm:"not null"`
	Status       DeliveryStatus `json:"status" gorm:"not null"`
	Overridden   bool           `json:"overridden"`
	VendorID     string         `json:"vendor_id,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ClientID     string         `json:"client_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定資料表名稱
func (WelcomeDelivery) TableName() string {
	return "welcome_deliveries"
}

// WelcomeStatusCache KeyDB 快取格式
type WelcomeStatusCache struct {
	DeliveryID   string `json:"delivery_id"`
	Recipient    string `json:"recipient"`
	Provider     string `json:"provider"`
	Status       string `json:"status"`
	LastUpdated  string `json:"last_updated"`
	ErrorMessage string `json:"error_message,omitempty"`
}
