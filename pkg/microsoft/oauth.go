// pkg/microsoft/oauth.go
// Microsoft OAuth 2.0 Token 取得與快取 (client credentials)

package microsoft

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// GraphScope Graph API 預設 scope
const GraphScope = "https://graph.microsoft.com/.default"

// OAuthService Microsoft OAuth 2.0 服務
type OAuthService struct {
	tenantID     string
	clientID     string
	clientSecret string
	tokenURL     string

	config *clientcredentials.Config
	token  *oauth2.Token
	mu     sync.Mutex
}

// Option OAuthService 選項
type Option func(*OAuthService)

// WithTokenURL 指定 Token 端點 (測試或主權雲使用)
func WithTokenURL(tokenURL string) Option {
	return func(s *OAuthService) {
		s.tokenURL = tokenURL
	}
}

// NewOAuthService 建立 OAuth 服務
func NewOAuthService(tenantID, clientID, clientSecret string, opts ...Option) *OAuthService {
	s := &OAuthService{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAccessToken 取得 Access Token (帶快取，到期前自動更新)
// 需要向 Token 端點請求時以 ctx 控制逾時與取消
func (s *OAuthService) GetAccessToken(ctx context.Context) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("microsoft oauth is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token.AccessToken, nil
	}

	token, err := s.credentials().Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	s.token = token
	return token.AccessToken, nil
}

// credentials 延遲建立 client credentials 設定 (需持有 mu)
func (s *OAuthService) credentials() *clientcredentials.Config {
	if s.config == nil {
		s.config = &clientcredentials.Config{
			ClientID:     s.clientID,
			ClientSecret: s.clientSecret,
			TokenURL:     s.tokenURL,
			Scopes:       []string{GraphScope},
		}
	}
	return s.config
}

// IsConfigured 檢查 OAuth 是否已設定
func (s *OAuthService) IsConfigured() bool {
	return s.tenantID != "" && s.clientID != "" && s.clientSecret != ""
}
