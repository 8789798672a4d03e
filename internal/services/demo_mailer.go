// internal/services/demo_mailer.go
// Demo 模式 - 覆寫供應商結果為成功

package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/models"
)

// DemoMailer 包裝真實郵件服務，真實發送後一律回報成功
// 真實結果保留在 SendResult.RawSuccess 與 VendorStatus
type DemoMailer struct {
	inner MailSender
}

// NewDemoMailer 建立 Demo 模式郵件服務
func NewDemoMailer(inner MailSender) *DemoMailer {
	return &DemoMailer{inner: inner}
}

// Name 回傳內部服務名稱
func (d *DemoMailer) Name() string {
	return d.inner.Name()
}

// Inner 回傳被包裝的郵件服務
func (d *DemoMailer) Inner() MailSender {
	return d.inner
}

// SendMail 呼叫內部服務並覆寫結果
func (d *DemoMailer) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	result, err := d.inner.SendMail(ctx, msg)

	overridden := &models.SendResult{Provider: d.inner.Name()}
	if result != nil {
		*overridden = *result
	}
	overridden.RawSuccess = err == nil && result != nil && result.Success
	overridden.Success = true
	overridden.Overridden = true

	event := log.Warn().
		Str("provider", d.inner.Name()).
		Str("to", msg.To).
		Bool("raw_success", overridden.RawSuccess).
		Int("status_code", overridden.StatusCode)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("[Demo] provider result overridden to success")

	return overridden, nil
}
