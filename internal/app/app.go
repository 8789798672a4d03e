// internal/app/app.go
// 應用程式 Facade - 發送固定內容的歡迎信

package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/metrics"
	"welcome-mailer/internal/models"
	"welcome-mailer/internal/services"
)

const (
	DefaultFrom    = "app@example.com"
	DefaultSubject = "Welcome to the App!"
	DefaultMessage = "This is a welcome email!"
)

var (
	// ErrNoMailer 尚未設定郵件服務
	ErrNoMailer = errors.New("no mailer configured")

	// ErrEmptyResult 郵件服務未回傳結果也未回傳錯誤
	ErrEmptyResult = errors.New("mailer returned no result")
)

// App 歡迎信 Facade
// from/subject/message 僅能在建立時設定
type App struct {
	from    string
	subject string
	message string

	mailer  services.MailSender
	metrics *metrics.WelcomeMetrics
}

// Option App 選項
type Option func(*App)

// WithFrom 設定寄件人
func WithFrom(from string) Option {
	return func(a *App) { a.from = from }
}

// WithSubject 設定主旨
func WithSubject(subject string) Option {
	return func(a *App) { a.subject = subject }
}

// WithMessage 設定內文
func WithMessage(message string) Option {
	return func(a *App) { a.message = message }
}

// WithMetrics 設定 Prometheus 指標
func WithMetrics(m *metrics.WelcomeMetrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithConfig 由設定檔帶入歡迎信內容
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		if cfg.WelcomeFrom != "" {
			a.from = cfg.WelcomeFrom
		}
		if cfg.WelcomeSubject != "" {
			a.subject = cfg.WelcomeSubject
		}
		if cfg.WelcomeMessage != "" {
			a.message = cfg.WelcomeMessage
		}
	}
}

// New 建立 App，mailer 可為 nil 並於之後以 SetMailer 設定
func New(mailer services.MailSender, opts ...Option) *App {
	a := &App{
		from:    DefaultFrom,
		subject: DefaultSubject,
		message: DefaultMessage,
		mailer:  mailer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetMailer 設定 (或覆寫) 郵件服務，回傳自身以便串接
func (a *App) SetMailer(mailer services.MailSender) *App {
	a.mailer = mailer
	return a
}

// Mailer 回傳目前的郵件服務
func (a *App) Mailer() services.MailSender {
	return a.mailer
}

func (a *App) From() string    { return a.from }
func (a *App) Subject() string { return a.subject }
func (a *App) Message() string { return a.message }

// WelcomeMessage 建立寄給指定收件人的歡迎信
func (a *App) WelcomeMessage(to string) *models.Message {
	return &models.Message{
		To:      to,
		From:    a.from,
		Subject: a.subject,
		Body:    a.message,
	}
}

// SendWelcomeEmail 發送歡迎信，回傳郵件服務的成功與否
func (a *App) SendWelcomeEmail(ctx context.Context, to string) (bool, error) {
	result, err := a.SendWelcomeEmailResult(ctx, to)
	if err != nil {
		return false, err
	}
	return result.Success, nil
}

// SendWelcomeEmailResult 發送歡迎信並回傳完整結果
// 供應商拒絕時 result 與 err 皆不為 nil
func (a *App) SendWelcomeEmailResult(ctx context.Context, to string) (*models.SendResult, error) {
	if a.mailer == nil {
		return nil, ErrNoMailer
	}

	provider := a.mailer.Name()
	start := time.Now()

	result, err := a.mailer.SendMail(ctx, a.WelcomeMessage(to))
	elapsed := time.Since(start)

	switch {
	case err != nil:
		outcome := metrics.OutcomeError
		if errors.Is(err, services.ErrDeliveryFailed) {
			outcome = metrics.OutcomeFailed
		}
		a.metrics.Observe(provider, outcome, elapsed)
		log.Error().Err(err).Str("provider", provider).Str("to", to).Msg("[Welcome] send failed")
		return result, err
	case result == nil:
		a.metrics.Observe(provider, metrics.OutcomeError, elapsed)
		return nil, ErrEmptyResult
	case result.Success:
		a.metrics.Observe(provider, metrics.OutcomeSent, elapsed)
	default:
		a.metrics.Observe(provider, metrics.OutcomeFailed, elapsed)
	}

	log.Info().
		Str("provider", provider).
		Str("to", to).
		Bool("success", result.Success).
		Bool("overridden", result.Overridden).
		Dur("elapsed", elapsed).
		Msg("[Welcome] welcome email processed")

	return result, nil
}
