package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/services"
)

func runWelcome(t *testing.T, cfg *config.Config, router *services.MailRouter, args ...string) (string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewWelcomeCommand(cfg, router)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return stdout.String(), stderr.String()
}

func testConfig() *config.Config {
	return &config.Config{
		MailProvider:     "stub",
		WelcomeFrom:      "app@example.com",
		WelcomeSubject:   "Welcome to the App!",
		WelcomeMessage:   "This is a welcome email!",
		WelcomeRecipient: "jane.doe@gmail.com",
	}
}

func TestWelcomeCommand_Sent(t *testing.T) {
	cfg := testConfig()
	router := services.NewMailRouter(cfg)
	stub := services.NewStubMailer(true)
	router.Register(stub)

	stdout, _ := runWelcome(t, cfg, router)

	assert.Equal(t, MsgSent+"\n", stdout)
	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "jane.doe@gmail.com", calls[0].To)
	assert.Equal(t, "app@example.com", calls[0].From)
}

func TestWelcomeCommand_Failed(t *testing.T) {
	cfg := testConfig()
	router := services.NewMailRouter(cfg)
	stub := services.NewStubMailer(false)
	router.Register(stub)

	stdout, _ := runWelcome(t, cfg, router, "--to", "foo@bar.com")

	assert.Equal(t, MsgFailed+"\n", stdout)
	require.Len(t, stub.Calls(), 1)
	assert.Equal(t, "foo@bar.com", stub.Calls()[0].To)
}

func TestWelcomeCommand_UnknownProvider(t *testing.T) {
	cfg := testConfig()

	stdout, stderr := runWelcome(t, cfg, services.NewMailRouter(cfg), "--provider", "pigeon")

	assert.Equal(t, MsgFailed+"\n", stdout)
	assert.Contains(t, stderr, "unknown mail provider")
}

func TestWelcomeCommand_DemoOverridesRejection(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"unauthorized","message":"Key not found"}`)
	}))
	t.Cleanup(vendor.Close)

	cfg := testConfig()
	cfg.SendinBlueAPIURL = vendor.URL
	cfg.SendinBlueAPIKey = "xkeysib-test"
	router := services.NewMailRouter(cfg)

	stdout, _ := runWelcome(t, cfg, router, "--provider", "sendinblue")
	assert.Equal(t, MsgFailed+"\n", stdout)

	stdout, _ = runWelcome(t, cfg, router, "--provider", "sendinblue", "--demo")
	assert.Equal(t, MsgSent+"\n", stdout)
}

func TestWelcomeCommand_DefaultRecipientFallback(t *testing.T) {
	cfg := testConfig()
	cfg.WelcomeRecipient = ""
	router := services.NewMailRouter(cfg)
	stub := services.NewStubMailer(true)
	router.Register(stub)

	runWelcome(t, cfg, router)

	require.Len(t, stub.Calls(), 1)
	assert.Equal(t, "jane.doe@gmail.com", stub.Calls()[0].To)
}

func TestWelcomeCommand_DemoFlagDisablesConfiguredDemoMode(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"unauthorized","message":"Key not found"}`)
	}))
	t.Cleanup(vendor.Close)

	cfg := testConfig()
	cfg.MailDemoMode = true
	cfg.SendinBlueAPIURL = vendor.URL
	cfg.SendinBlueAPIKey = "xkeysib-test"
	router := services.NewMailRouter(cfg)

	stdout, _ := runWelcome(t, cfg, router, "--provider", "sendinblue")
	assert.Equal(t, MsgSent+"\n", stdout)

	stdout, _ = runWelcome(t, cfg, router, "--provider", "sendinblue", "--demo=false")
	assert.Equal(t, MsgFailed+"\n", stdout)
	assert.False(t, cfg.MailDemoMode)
}
