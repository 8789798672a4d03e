// internal/services/mandrill_service.go
// Mandrill 郵件發送服務

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

// MandrillService Mandrill 郵件發送服務
// 實作 MailSender interface
type MandrillService struct {
	cfg *config.Config
}

// NewMandrillService 建立 Mandrill 服務
func NewMandrillService(cfg *config.Config) *MandrillService {
	return &MandrillService{cfg: cfg}
}

// MandrillSendRequest messages/send 請求結構
type MandrillSendRequest struct {
	Key     string          `json:"key"`
	Message MandrillMessage `json:"message"`
}

// MandrillMessage Mandrill 郵件訊息結構
type MandrillMessage struct {
	To        []MandrillRecipient `json:"to"`
	FromEmail string              `json:"from_email"`
	Subject   string              `json:"subject"`
	Text      string              `json:"text"`
}

// MandrillRecipient Mandrill 收件人結構
type MandrillRecipient struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// MandrillSendStatus 每位收件人的發送結果
type MandrillSendStatus struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason,omitempty"`
	ID           string `json:"_id"`
}

// MandrillErrorResponse Mandrill 錯誤回應
type MandrillErrorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Name 回傳服務名稱
func (s *MandrillService) Name() string {
	return "mandrill"
}

// IsConfigured 檢查 Mandrill 是否已設定
func (s *MandrillService) IsConfigured() bool {
	return s.cfg.MandrillAPIKey != ""
}

// SendMail 發送郵件 (使用 Mandrill messages/send API)
func (s *MandrillService) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	body, err := json.Marshal(MandrillSendRequest{
		Key: s.cfg.MandrillAPIKey,
		Message: MandrillMessage{
			To:        []MandrillRecipient{{Email: msg.To, Type: "to"}},
			FromEmail: msg.From,
			Subject:   msg.Subject,
			Text:      msg.Body,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	request := rest.Request{
		Method:  rest.Post,
		BaseURL: strings.TrimRight(s.cfg.MandrillAPIURL, "/") + "/messages/send.json",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}

	response, err := rest.SendWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send email via Mandrill: %w", err)
	}

	result := &models.SendResult{
		Provider:   s.Name(),
		StatusCode: response.StatusCode,
		Raw:        response.Body,
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var errResp MandrillErrorResponse
		if err := json.Unmarshal([]byte(response.Body), &errResp); err == nil && errResp.Message != "" {
			result.VendorStatus = errResp.Name
			return result, newDeliveryError(s.Name(), response.StatusCode, fmt.Sprintf("%s: %s", errResp.Name, errResp.Message))
		}
		return result, newDeliveryError(s.Name(), response.StatusCode, response.Body)
	}

	var statuses []MandrillSendStatus
	if err := json.Unmarshal([]byte(response.Body), &statuses); err != nil {
		return result, fmt.Errorf("failed to decode Mandrill response: %w", err)
	}
	if len(statuses) == 0 {
		return result, newDeliveryError(s.Name(), response.StatusCode, "empty response")
	}

	// 只有一位收件人
	status := statuses[0]
	result.VendorID = status.ID
	result.VendorStatus = status.Status

	switch status.Status {
	case "sent", "queued", "scheduled":
		result.Success = true
		result.RawSuccess = true
		return result, nil
	default:
		detail := status.Status
		if status.RejectReason != "" {
			detail = fmt.Sprintf("%s (%s)", status.Status, status.RejectReason)
		}
		return result, newDeliveryError(s.Name(), response.StatusCode, detail)
	}
}
