// internal/services/stub_mailer.go
// Stub 郵件服務 - 不發出任何網路請求

package services

import (
	"context"
	"sync"

	"welcome-mailer/internal/models"
)

// StubMailer 固定回傳設定結果的郵件服務
// 用於沒有已驗證寄件網域的環境與測試
type StubMailer struct {
	Success bool
	Err     error

	mu    sync.Mutex
	calls []models.Message
}

// NewStubMailer 建立 Stub 郵件服務
func NewStubMailer(success bool) *StubMailer {
	return &StubMailer{Success: success}
}

// Name 回傳服務名稱
func (s *StubMailer) Name() string {
	return "stub"
}

// SendMail 記錄呼叫並回傳預設結果
func (s *StubMailer) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, *msg)
	s.mu.Unlock()

	result := &models.SendResult{
		Provider:     s.Name(),
		Success:      s.Success && s.Err == nil,
		RawSuccess:   s.Success && s.Err == nil,
		VendorStatus: "stubbed",
	}
	return result, s.Err
}

// Calls 回傳所有已記錄的郵件
func (s *StubMailer) Calls() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, len(s.calls))
	copy(out, s.calls)
	return out
}
