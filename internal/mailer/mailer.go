// Package mailer delivers transactional email. Delivery is best-effort:
// callers log failures and carry on, so a down SMTP relay never rolls back
// the operation that triggered the send.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pochaneco/ai-Knowledge-api/internal/config"
)

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Noop is used when mail is disabled in config and in tests that do not
// care about delivery.
type Noop struct{}

func (Noop) Send(string, string, string) error { return nil }

// SMTPMailer sends via a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), m.cfg.Host)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.Sender, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Recorder captures sends for tests.
type Recorder struct {
	Sent []RecordedMail
}

type RecordedMail struct {
	To      string
	Subject string
	Body    string
}

func (r *Recorder) Send(to, subject, htmlBody string) error {
	r.Sent = append(r.Sent, RecordedMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}
