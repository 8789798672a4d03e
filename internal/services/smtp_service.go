// internal/services/smtp_service.go
// SMTP Relay 郵件發送服務

package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

// SMTPService SMTP Relay 郵件發送服務
// 實作 MailSender interface
type SMTPService struct {
	cfg *config.Config

	// tlsConfig 為 nil 時以 SMTP_HOST 驗證伺服器憑證
	tlsConfig *tls.Config
}

// NewSMTPService 建立 SMTP Relay 服務
func NewSMTPService(cfg *config.Config) *SMTPService {
	return &SMTPService{cfg: cfg}
}

// Name 回傳服務名稱
func (s *SMTPService) Name() string {
	return "smtp"
}

// IsConfigured 檢查 SMTP Relay 是否已設定
func (s *SMTPService) IsConfigured() bool {
	return s.cfg.SMTPHost != "" && s.cfg.SMTPPort > 0
}

// SendMail 發送郵件 (透過 SMTP Relay)
// 有設定帳號時強制 STARTTLS，不會以明文傳送密碼
func (s *SMTPService) SendMail(ctx context.Context, msg *models.Message) (*models.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, messageID, err := buildMIMEMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	client, release, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// 有設定帳號時才進行認證
	if s.cfg.SMTPUsername != "" {
		if _, isTLS := client.TLSConnectionState(); !isTLS {
			return nil, errors.New("refusing to send SMTP credentials over an unencrypted connection")
		}
		auth := sasl.NewPlainClient("", s.cfg.SMTPUsername, s.cfg.SMTPPassword)
		if err := client.Auth(auth); err != nil {
			return nil, s.connError(ctx, "failed to authenticate", err)
		}
	}

	result := &models.SendResult{
		Provider: s.Name(),
		VendorID: messageID,
	}

	if err := client.SendMail(msg.From, []string{msg.To}, bytes.NewReader(data)); err != nil {
		var smtpErr *gosmtp.SMTPError
		if errors.As(err, &smtpErr) {
			result.StatusCode = smtpErr.Code
			result.Raw = smtpErr.Message
			return result, newDeliveryError(s.Name(), smtpErr.Code, smtpErr.Message)
		}
		return nil, s.connError(ctx, "failed to send email via SMTP", err)
	}

	// QUIT 失敗不影響已送出的郵件
	_ = client.Quit()

	result.StatusCode = 250
	result.Success = true
	result.RawSuccess = true
	return result, nil
}

// connect 建立連線，連線生命週期綁定 ctx
// ctx 取消時直接關閉連線，避免卡在停滯的伺服器
func (s *SMTPService) connect(ctx context.Context) (*gosmtp.Client, func(), error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.SMTPAddr())
	if err != nil {
		return nil, nil, s.connError(ctx, "failed to connect to SMTP server", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		_ = conn.SetDeadline(deadline)
	}

	var client *gosmtp.Client
	if s.cfg.SMTPUsername != "" {
		client, err = gosmtp.NewClientStartTLS(conn, s.tlsClientConfig())
		if err != nil {
			stop()
			_ = conn.Close()
			return nil, nil, s.connError(ctx, "failed to establish TLS connection", err)
		}
	} else {
		client = gosmtp.NewClient(conn)
	}

	// go-smtp 每個指令都會重設 deadline，上限改為 ctx 剩餘時間
	if hasDeadline {
		remaining := time.Until(deadline)
		client.CommandTimeout = remaining
		client.SubmissionTimeout = remaining
	}

	release := func() {
		stop()
		_ = client.Close()
	}
	return client, release, nil
}

func (s *SMTPService) tlsClientConfig() *tls.Config {
	if s.tlsConfig != nil {
		return s.tlsConfig
	}
	return &tls.Config{ServerName: s.cfg.SMTPHost}
}

// connError 包裝連線錯誤，ctx 已結束時回報 ctx 的錯誤
func (s *SMTPService) connError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	// 連線 deadline 可能比 ctx 的計時器早一步觸發
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// buildMIMEMessage 建立 text/plain 郵件內容，回傳內容與 Message-ID
func buildMIMEMessage(msg *models.Message) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: msg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", err
	}
	messageID, err := h.MessageID()
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), messageID, nil
}
