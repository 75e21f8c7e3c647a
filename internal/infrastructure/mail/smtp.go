// Package mail sends notification emails over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/config"
)

// ErrNotConfigured is returned when any SMTP setting is missing. Sending is skipped.
var ErrNotConfigured = errors.New("smtp is not configured")

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger zerolog.Logger
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg config.SMTPConfig, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
}

// Send delivers one HTML message using STARTTLS and PLAIN auth.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.cfg.Configured() {
		m.logger.Warn().Str("to", to).Msg("smtp not configured, skipping email")
		return ErrNotConfigured
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(time.Minute))
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt %s: %w", to, err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(m.cfg.From, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	m.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return c.Quit()
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}

func TaskCompletedEmail(title string) (subject, body string) {
	subject = "Task Completed: " + title
	body = "<h1>Task Completed</h1><p>You have completed the task: <strong>" +
		html.EscapeString(title) + "</strong></p>"
	return subject, body
}

func TaskAssignedEmail(title string) (subject, body string) {
	subject = "New Task Assigned"
	body = "<h2>New Task Assigned</h2><p>You have been assigned a new task:</p><p><strong>" +
		html.EscapeString(title) + "</strong></p>"
	return subject, body
}
