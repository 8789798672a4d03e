// internal/services/mail_sender.go
// 郵件發送服務共用介面

package services

import (
	"context"

	"welcome-mailer/internal/models"
)

// MailSender 郵件發送服務介面
// 所有郵件發送服務（SendGrid、Mandrill、SendinBlue 等）都需實作此介面
type MailSender interface {
	// SendMail 發送郵件
	// 供應商拒絕時回傳 Success=false 的結果以及 *DeliveryError
	SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error)

	// Name 回傳服務名稱，用於 logging
	Name() string
}
