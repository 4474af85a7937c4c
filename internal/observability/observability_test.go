package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, 42)
	logger.InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":42`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestLogger_WithAttrsKeepsContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "development").With("component", "test")

	ctx := context.WithValue(context.Background(), TraceIDKey, "trace-9")
	logger.InfoContext(ctx, "hi")

	assert.Contains(t, buf.String(), "trace_id=trace-9")
	assert.Contains(t, buf.String(), "component=test")
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.Auth(EventLoginSuccess)
	m.Auth(EventLoginSuccess)
	m.Post("create")
	m.Mail(nil)
	m.Mail(errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues(EventLoginSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostMutations.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailSent.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailSent.WithLabelValues("error")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.Auth(EventLogout) })
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = NewMetrics()
		_ = NewMetrics()
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: ServiceName, Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "test.op")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("ignored by noop span"))
}
