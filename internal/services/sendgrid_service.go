// internal/services/sendgrid_service.go
// SendGrid 郵件發送服務

package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

const sendGridSendEndpoint = "/v3/mail/send"

// SendGridService SendGrid 郵件發送服務
// 實作 MailSender interface
type SendGridService struct {
	cfg *config.Config
}

// NewSendGridService 建立 SendGrid 服務
func NewSendGridService(cfg *config.Config) *SendGridService {
	return &SendGridService{cfg: cfg}
}

// Name 回傳服務名稱
func (s *SendGridService) Name() string {
	return "sendgrid"
}

// IsConfigured 檢查 SendGrid 是否已設定
func (s *SendGridService) IsConfigured() bool {
	return s.cfg.SendGridAPIKey != ""
}

// SendMail 發送郵件 (使用 SendGrid v3 API)
func (s *SendGridService) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	request := sendgrid.GetRequest(s.cfg.SendGridAPIKey, sendGridSendEndpoint, s.cfg.SendGridHost)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(s.buildMessage(msg))

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send email via SendGrid: %w", err)
	}

	result := &models.SendResult{
		Provider:   s.Name(),
		StatusCode: response.StatusCode,
		Raw:        response.Body,
	}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		result.VendorID = ids[0]
	}

	// 檢查回應狀態 (2xx 表示成功)
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return result, newDeliveryError(s.Name(), response.StatusCode, response.Body)
	}

	result.Success = true
	result.RawSuccess = true
	return result, nil
}

// buildMessage 建立 SendGrid 郵件結構
func (s *SendGridService) buildMessage(msg *models.Message) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail("", msg.From))
	message.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail("", msg.To))
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/plain", msg.Body))
	return message
}
