// internal/services/sendinblue_service.go
// SendinBlue 郵件發送服務

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

// SendinBlueService SendinBlue 郵件發送服務
// 實作 MailSender interface
type SendinBlueService struct {
	cfg *config.Config
}

// NewSendinBlueService 建立 SendinBlue 服務
func NewSendinBlueService(cfg *config.Config) *SendinBlueService {
	return &SendinBlueService{cfg: cfg}
}

// SendinBlueEmailRequest smtp/email 請求結構
type SendinBlueEmailRequest struct {
	Sender      SendinBlueContact   `json:"sender"`
	To          []SendinBlueContact `json:"to"`
	Subject     string              `json:"subject"`
	TextContent string              `json:"textContent"`
}

// SendinBlueContact 寄件人/收件人結構
type SendinBlueContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendinBlueEmailResponse 發送成功回應
type SendinBlueEmailResponse struct {
	MessageID string `json:"messageId"`
}

// SendinBlueErrorResponse 錯誤回應
type SendinBlueErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Name 回傳服務名稱
func (s *SendinBlueService) Name() string {
	return "sendinblue"
}

// IsConfigured 檢查 SendinBlue 是否已設定
func (s *SendinBlueService) IsConfigured() bool {
	return s.cfg.SendinBlueAPIKey != ""
}

// SendMail 發送郵件 (使用 SendinBlue transactional email API)
func (s *SendinBlueService) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	// 地址同時作為顯示名稱
	body, err := json.Marshal(SendinBlueEmailRequest{
		Sender:      SendinBlueContact{Email: msg.From, Name: msg.From},
		To:          []SendinBlueContact{{Email: msg.To, Name: msg.To}},
		Subject:     msg.Subject,
		TextContent: msg.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	request := rest.Request{
		Method:  rest.Post,
		BaseURL: strings.TrimRight(s.cfg.SendinBlueAPIURL, "/") + "/smtp/email",
		Headers: map[string]string{
			"api-key":      s.cfg.SendinBlueAPIKey,
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		Body: body,
	}

	response, err := rest.SendWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send email via SendinBlue: %w", err)
	}

	result := &models.SendResult{
		Provider:   s.Name(),
		StatusCode: response.StatusCode,
		Raw:        response.Body,
	}

	// 201 Created 表示成功
	if response.StatusCode != http.StatusCreated && response.StatusCode != http.StatusOK {
		var errResp SendinBlueErrorResponse
		if err := json.Unmarshal([]byte(response.Body), &errResp); err == nil && errResp.Code != "" {
			result.VendorStatus = errResp.Code
			return result, newDeliveryError(s.Name(), response.StatusCode, fmt.Sprintf("%s: %s", errResp.Code, errResp.Message))
		}
		return result, newDeliveryError(s.Name(), response.StatusCode, response.Body)
	}

	var okResp SendinBlueEmailResponse
	if err := json.Unmarshal([]byte(response.Body), &okResp); err == nil {
		result.VendorID = okResp.MessageID
	}
	result.VendorStatus = "success"
	result.Success = true
	result.RawSuccess = true
	return result, nil
}
