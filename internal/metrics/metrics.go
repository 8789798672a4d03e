// internal/metrics/metrics.go
// Prometheus 指標 - 歡迎信發送次數與耗時

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// WelcomeMetrics 歡迎信發送指標
type WelcomeMetrics struct {
	Sends    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewWelcomeMetrics 建立指標並註冊到指定 registerer
func NewWelcomeMetrics(reg prometheus.Registerer) *WelcomeMetrics {
	m := &WelcomeMetrics{
		Sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welcome_emails_total",
				Help: "The total number of welcome email send attempts",
			},
			[]string{"provider", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "welcome_email_send_duration_seconds",
				Help:    "Welcome email provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Sends, m.Duration)
	}
	return m
}

// Observe 記錄一次發送
// outcome: sent (成功)、failed (供應商拒絕)、error (其他錯誤)
func (m *WelcomeMetrics) Observe(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Sends.WithLabelValues(provider, outcome).Inc()
	m.Duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
