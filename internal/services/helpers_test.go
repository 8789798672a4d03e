package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"welcome-mailer/internal/config"
	"welcome-mailer/internal/models"
)

// capturedRequest is an HTTP request recorded by a vendor fake.
type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// vendorFake serves a canned response and records every request.
type vendorFake struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func newVendorFake(t *testing.T, status int, body string, headers map[string]string) *vendorFake {
	t.Helper()

	f := &vendorFake{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   data,
		})
		f.mu.Unlock()

		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *vendorFake) lastRequest(t *testing.T) capturedRequest {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "vendor fake received no request")
	return f.requests[len(f.requests)-1]
}

func (f *vendorFake) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func decodeJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func testMessage() *models.Message {
	return &models.Message{
		To:      "foo@bar.com",
		From:    "bar@foo.com",
		Subject: "Test Subject",
		Body:    "Test Message",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		MailProvider:   "sendgrid",
		SendGridHost:   "https://api.sendgrid.com",
		MandrillAPIURL: "https://mandrillapp.com/api/1.0",
	}
}
