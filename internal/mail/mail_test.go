package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"myblog/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetMessage(t *testing.T) {
	msg := ResetMessage("noreply@demo.com", "alice@example.com", "http://localhost:5000/reset_password/abc")

	assert.Equal(t, "noreply@demo.com", msg.From)
	assert.Equal(t, []string{"alice@example.com"}, msg.To)
	assert.Equal(t, "Password reset request", msg.Subject)
	assert.Equal(t, "To reset your password, click on the following link:\n"+
		"http://localhost:5000/reset_password/abc\n\n"+
		"If you didn't make this request, you can just ignore this email.", msg.Body)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Send(context.Background(), Message{Subject: "one"}))
	require.NoError(t, r.Send(context.Background(), Message{Subject: "two"}))
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Subject)
	assert.Len(t, r.Sent(), 2)

	r.Err = errors.New("smtp down")
	assert.Error(t, r.Send(context.Background(), Message{}))
	assert.Len(t, r.Sent(), 2)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(observability.NewLoggerTo(&buf, "development"))

	require.NoError(t, m.Send(context.Background(), ResetMessage("noreply@demo.com", "bob@example.com", "http://x/reset_password/t")))
	assert.Contains(t, buf.String(), "bob@example.com")
	assert.Contains(t, buf.String(), "Password reset request")
}

func TestBuildMsg(t *testing.T) {
	gm, err := buildMsg(ResetMessage("noreply@demo.com", "alice@example.com", "http://x/reset_password/t"))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = gm.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: Password reset request")
	assert.Contains(t, buf.String(), "alice@example.com")

	_, err = buildMsg(Message{From: "not an address", To: []string{"a@example.com"}})
	assert.Error(t, err)
}

func TestSMTPMailer_Unreachable(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, Timeout: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := m.Send(ctx, ResetMessage("noreply@demo.com", "alice@example.com", "http://x"))
	assert.Error(t, err)
}
