package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth event labels.
const (
	EventSignup         = "signup"
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventLogout         = "logout"
	EventResetRequested = "reset_requested"
	EventResetCompleted = "reset_completed"
	EventResetRejected  = "reset_token_rejected"
)

// Metrics holds the domain counters registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	AuthEvents    *prometheus.CounterVec
	PostMutations *prometheus.CounterVec
	RedisErrors   *prometheus.CounterVec
	MailSent      *prometheus.CounterVec
}

// NewMetrics creates a fresh registry with process collectors and the blog counters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		AuthEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "myblog_auth_events_total",
			Help: "Authentication events by type",
		}, []string{"event"}),
		PostMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "myblog_posts_mutations_total",
			Help: "Post writes by operation",
		}, []string{"op"}),
		RedisErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "myblog_redis_errors_total",
			Help: "Total number of Redis errors by operation type",
		}, []string{"operation"}),
		MailSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "myblog_mail_sent_total",
			Help: "Outgoing mail by result",
		}, []string{"result"}),
	}
}

// Auth records an authentication event. Safe on a nil receiver.
func (m *Metrics) Auth(event string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event).Inc()
}

// Post records a post mutation. Safe on a nil receiver.
func (m *Metrics) Post(op string) {
	if m == nil {
		return
	}
	m.PostMutations.WithLabelValues(op).Inc()
}

// Redis records a failed redis command. Safe on a nil receiver.
func (m *Metrics) Redis(operation string) {
	if m == nil {
		return
	}
	m.RedisErrors.WithLabelValues(operation).Inc()
}

// Mail records a mail delivery result. Safe on a nil receiver.
func (m *Metrics) Mail(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MailSent.WithLabelValues(result).Inc()
}
