// internal/services/graph_service.go
// Microsoft Graph API 郵件發送服務

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sendgrid/rest"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
	"welcome-mailer/pkg/microsoft"
)

// GraphMailService Microsoft Graph API 郵件發送服務
// 實作 MailSender interface
type GraphMailService struct {
	cfg          *config.Config
	oauthService *microsoft.OAuthService
}

// NewGraphMailService 建立 Graph API 郵件服務
func NewGraphMailService(cfg *config.Config, oauthService *microsoft.OAuthService) *GraphMailService {
	return &GraphMailService{
		cfg:          cfg,
		oauthService: oauthService,
	}
}

// GraphMailRequest Graph API 郵件請求結構
type GraphMailRequest struct {
	Message         GraphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

// GraphMessage Graph API 郵件訊息結構
type GraphMessage struct {
	Subject      string           `json:"subject"`
	Body         GraphBody        `json:"body"`
	ToRecipients []GraphRecipient `json:"toRecipients"`
}

// GraphBody Graph API 郵件內容結構
type GraphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// GraphRecipient Graph API 收件人結構
type GraphRecipient struct {
	EmailAddress GraphEmailAddress `json:"emailAddress"`
}

// GraphEmailAddress Graph API 電子郵件地址結構
type GraphEmailAddress struct {
	Address string `json:"address"`
}

// GraphErrorResponse Graph API 錯誤回應
type GraphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Name 回傳服務名稱
func (s *GraphMailService) Name() string {
	return "graph"
}

// IsConfigured 檢查 OAuth 是否已設定
func (s *GraphMailService) IsConfigured() bool {
	return s.oauthService != nil && s.oauthService.IsConfigured()
}

// SendMail 發送郵件 (使用 Microsoft Graph API)
func (s *GraphMailService) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	if s.oauthService == nil {
		return nil, ErrProviderNotConfigured
	}

	// 取得 OAuth 2.0 Access Token
	accessToken, err := s.oauthService.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	jsonBody, err := json.Marshal(s.buildGraphRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Graph API 端點
	graphURL := fmt.Sprintf(
		"%s/users/%s/sendMail",
		strings.TrimRight(s.cfg.GraphAPIURL, "/"),
		url.PathEscape(msg.From),
	)

	request := rest.Request{
		Method:  rest.Post,
		BaseURL: graphURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Content-Type":  "application/json",
		},
		Body: jsonBody,
	}

	response, err := rest.SendWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	result := &models.SendResult{
		Provider:   s.Name(),
		StatusCode: response.StatusCode,
		Raw:        response.Body,
	}
	if ids := response.Headers["Request-Id"]; len(ids) > 0 {
		result.VendorID = ids[0]
	}

	// 檢查回應 (202 Accepted 表示成功)
	if response.StatusCode != http.StatusAccepted && response.StatusCode != http.StatusOK {
		var errResp GraphErrorResponse
		if err := json.Unmarshal([]byte(response.Body), &errResp); err == nil && errResp.Error.Message != "" {
			result.VendorStatus = errResp.Error.Code
			return result, newDeliveryError(s.Name(), response.StatusCode, fmt.Sprintf("%s: %s", errResp.Error.Code, errResp.Error.Message))
		}
		return result, newDeliveryError(s.Name(), response.StatusCode, response.Body)
	}

	result.Success = true
	result.RawSuccess = true
	return result, nil
}

// buildGraphRequest 建立 Graph API 請求結構
func (s *GraphMailService) buildGraphRequest(msg *models.Message) *GraphMailRequest {
	return &GraphMailRequest{
		Message: GraphMessage{
			Subject: msg.Subject,
			Body: GraphBody{
				ContentType: "text",
				Content:     msg.Body,
			},
			ToRecipients: []GraphRecipient{
				{EmailAddress: GraphEmailAddress{Address: msg.To}},
			},
		},
		SaveToSentItems: true,
	}
}
