// internal/services/mail_router.go
// 郵件路由服務 - 根據設定選擇對應的郵件服務

package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/config"
	"welcome-mailer/pkg/microsoft"
)

// configurable 可檢查設定是否完整的郵件服務
type configurable interface {
	IsConfigured() bool
}

// MailRouter 郵件路由服務
// 依名稱保存所有郵件服務，預設服務由 MAIL_PROVIDER 決定
type MailRouter struct {
	cfg     *config.Config
	senders map[string]MailSender
}

// NewMailRouter 建立郵件路由服務並註冊所有內建郵件服務
func NewMailRouter(cfg *config.Config) *MailRouter {
	oauthService := microsoft.NewOAuthService(
		cfg.MicrosoftTenantID,
		cfg.MicrosoftClientID,
		cfg.MicrosoftClientSecret,
	)

	r := &MailRouter{
		cfg:     cfg,
		senders: make(map[string]MailSender),
	}
	r.Register(NewSendGridService(cfg))
	r.Register(NewMandrillService(cfg))
	r.Register(NewSendinBlueService(cfg))
	r.Register(NewSMTPService(cfg))
	r.Register(NewGraphMailService(cfg, oauthService))
	r.Register(NewStubMailer(true))
	return r
}

// Register 註冊 (或覆寫) 郵件服務
func (r *MailRouter) Register(sender MailSender) {
	r.senders[strings.ToLower(sender.Name())] = sender
}

// Resolve 依名稱取得郵件服務
// Demo 模式開啟時以 DemoMailer 包裝 (stub 除外)
func (r *MailRouter) Resolve(name string) (MailSender, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	sender, ok := r.senders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(r.Names(), ", "))
	}

	if r.cfg.MailDemoMode {
		if _, isStub := sender.(*StubMailer); !isStub {
			return NewDemoMailer(sender), nil
		}
	}
	return sender, nil
}

// Default 取得 MAIL_PROVIDER 指定的郵件服務
func (r *MailRouter) Default() (MailSender, error) {
	return r.Resolve(r.cfg.MailProvider)
}

// Names 回傳已註冊的郵件服務名稱 (排序後)
func (r *MailRouter) Names() []string {
	names := make([]string, 0, len(r.senders))
	for name := range r.senders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderStatus 預設郵件服務狀態
type ProviderStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	DemoMode   bool   `json:"demo_mode"`
	Error      string `json:"error,omitempty"`
}

// Status 回報預設郵件服務的設定狀態
func (r *MailRouter) Status() ProviderStatus {
	status := ProviderStatus{
		Name:     strings.ToLower(strings.TrimSpace(r.cfg.MailProvider)),
		DemoMode: r.cfg.MailDemoMode,
	}
	if err := r.validate(); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Configured = true
	return status
}

// ValidateConfiguration 驗證預設郵件服務設定
func (r *MailRouter) ValidateConfiguration() error {
	if err := r.validate(); err != nil {
		return err
	}

	if r.cfg.MailDemoMode {
		log.Warn().Str("provider", r.cfg.MailProvider).Msg("[Mail] demo mode enabled, provider failures will be reported as success")
	}
	return nil
}

func (r *MailRouter) validate() error {
	name := strings.ToLower(strings.TrimSpace(r.cfg.MailProvider))
	sender, ok := r.senders[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, r.cfg.MailProvider)
	}

	if c, ok := sender.(configurable); ok && !c.IsConfigured() {
		return fmt.Errorf("%w: %s", ErrProviderNotConfigured, sender.Name())
	}
	return nil
}
