package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturedMail is a message accepted by the in-process SMTP server.
type capturedMail struct {
	From string
	To   []string
	Data []byte
}

type captureBackend struct {
	rejectRcpt bool

	mu       sync.Mutex
	messages []capturedMail
	logins   []string
}

func (b *captureBackend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &captureSession{backend: b}, nil
}

func (b *captureBackend) received() []capturedMail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedMail(nil), b.messages...)
}

type captureSession struct {
	backend *captureBackend
	from    string
	to      []string
}

func (s *captureSession) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if s.backend.rejectRcpt {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "Mailbox unavailable",
		}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, capturedMail{From: s.from, To: s.to, Data: data})
	s.backend.mu.Unlock()
	return nil
}

func (s *captureSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *captureSession) Logout() error {
	return nil
}

func (s *captureSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *captureSession) Auth(_ string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if password != "relay-secret" {
			return errors.New("invalid credentials")
		}
		s.backend.mu.Lock()
		s.backend.logins = append(s.backend.logins, username)
		s.backend.mu.Unlock()
		return nil
	}), nil
}

func (b *captureBackend) loggedIn() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.logins...)
}

// testTLSConfigs returns a server config and a client config that trusts it.
func testTLSConfigs(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()

	ts := httptest.NewTLSServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())

	return &tls.Config{Certificates: ts.TLS.Certificates},
		&tls.Config{RootCAs: pool, ServerName: "127.0.0.1"}
}

func startSMTPServer(t *testing.T, backend *captureBackend, tlsConfig *tls.Config) (string, int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := gosmtp.NewServer(backend)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.TLSConfig = tlsConfig

	go func() {
		_ = srv.Serve(l)
	}()
	t.Cleanup(func() {
		_ = srv.Close()
	})

	addr := l.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSMTPService_SendMail_Success(t *testing.T) {
	backend := &captureBackend{}
	host, port := startSMTPServer(t, backend, nil)

	cfg := testConfig()
	cfg.SMTPHost = host
	cfg.SMTPPort = port
	svc := NewSMTPService(cfg)
	require.True(t, svc.IsConfigured())

	result, err := svc.SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.VendorID)

	received := backend.received()
	require.Len(t, received, 1)
	assert.Equal(t, "bar@foo.com", received[0].From)
	assert.Equal(t, []string{"foo@bar.com"}, received[0].To)

	mr, err := mail.CreateReader(bytes.NewReader(received[0].Data))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Test Subject", subject)

	messageID, err := mr.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, result.VendorID, messageID)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, "Test Message", string(body))
}

func TestSMTPService_SendMail_RecipientRejected(t *testing.T) {
	backend := &captureBackend{rejectRcpt: true}
	host, port := startSMTPServer(t, backend, nil)

	cfg := testConfig()
	cfg.SMTPHost = host
	cfg.SMTPPort = port

	result, err := NewSMTPService(cfg).SendMail(context.Background(), testMessage())

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, 550, deliveryErr.StatusCode)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Empty(t, backend.received())
}

func TestSMTPService_SendMail_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig()
	cfg.SMTPHost = "127.0.0.1"
	cfg.SMTPPort = port

	result, err := NewSMTPService(cfg).SendMail(context.Background(), testMessage())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeliveryFailed)
	assert.Nil(t, result)
}

func TestSMTPService_SendMail_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSMTPService(testConfig()).SendMail(ctx, testMessage())

	require.ErrorIs(t, err, context.Canceled)
}

func TestSMTPService_SendMail_AuthOverSTARTTLS(t *testing.T) {
	serverTLS, clientTLS := testTLSConfigs(t)
	backend := &captureBackend{}
	host, port := startSMTPServer(t, backend, serverTLS)

	cfg := testConfig()
	cfg.SMTPHost = host
	cfg.SMTPPort = port
	cfg.SMTPUsername = "relay-user"
	cfg.SMTPPassword = "relay-secret"
	svc := NewSMTPService(cfg)
	svc.tlsConfig = clientTLS

	result, err := svc.SendMail(context.Background(), testMessage())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"relay-user"}, backend.loggedIn())
	assert.Len(t, backend.received(), 1)
}

func TestSMTPService_SendMail_CredentialsRequireTLS(t *testing.T) {
	backend := &captureBackend{}
	host, port := startSMTPServer(t, backend, nil)

	cfg := testConfig()
	cfg.SMTPHost = host
	cfg.SMTPPort = port
	cfg.SMTPUsername = "relay-user"
	cfg.SMTPPassword = "relay-secret"

	result, err := NewSMTPService(cfg).SendMail(context.Background(), testMessage())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeliveryFailed)
	assert.Nil(t, result)
	assert.Empty(t, backend.loggedIn())
	assert.Empty(t, backend.received())
}

func TestSMTPService_SendMail_StalledServerHonoursDeadline(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	// 接受連線但永遠不送出 220 greeting
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	cfg := testConfig()
	cfg.SMTPHost = "127.0.0.1"
	cfg.SMTPPort = l.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := NewSMTPService(cfg).SendMail(ctx, testMessage())

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, result)
	assert.Less(t, time.Since(start), 2*time.Second)
}
