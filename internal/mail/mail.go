// Package mail sends transactional email such as password reset links.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Message is a plain text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const (
	// ResetSubject is the subject line of password reset mails.
	ResetSubject = "Password reset request"

	resetBody = "To reset your password, click on the following link:\n%s\n\n" +
		"If you didn't make this request, you can just ignore this email."
)

// ResetMessage builds the password reset mail pointing at resetURL.
func ResetMessage(from, to, resetURL string) Message {
	return Message{
		From:    from,
		To:      []string{to},
		Subject: ResetSubject,
		Body:    fmt.Sprintf(resetBody, resetURL),
	}
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.InfoContext(ctx, "Mail not delivered (no SMTP credentials)",
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// Recorder keeps sent messages in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Message{}, false
	}
	return r.sent[len(r.sent)-1], true
}
