// Package mail delivers transactional email: magic links and order
// receipts.
//
//	msg := mail.To("owner@example.com").
//	    WithSubject("Your sign-in link").
//	    Template(magicLinkTmpl, data)
//	err := mail.Default().Send(ctx, msg)
//
// When MAIL_HOST is unset the LogSender is used, which writes the message
// to the log instead of delivering it.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"sync"

	"github.com/developlogy/sitebuilder/config"
	"github.com/developlogy/sitebuilder/pkg/logger"
)

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func configSMTP() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", ""),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "hello@developlogy.com"),
		FromName: config.Get("MAIL_FROM_NAME", "Developlogy"),
	}
}

// Message is a fluent builder for one email.
type Message struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
	err     error
}

// To starts a message to the given recipients.
func To(addresses ...string) *Message {
	return &Message{To: addresses, HTML: true}
}

// WithSubject sets the subject.
func (m *Message) WithSubject(s string) *Message {
	m.Subject = s
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.Body = text
	m.HTML = false
	return m
}

// Template renders t with data as the HTML body. A render error is kept and
// returned by Send.
func (m *Message) Template(t *template.Template, data any) *Message {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render %s: %w", t.Name(), err)
		return m
	}
	m.Body = buf.String()
	m.HTML = true
	return m
}

// Err returns the first build error.
func (m *Message) Err() error { return m.err }

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

var (
	defaultMu     sync.RWMutex
	defaultSender Sender
)

// Default returns the configured sender: SMTP when MAIL_HOST is set,
// otherwise the LogSender.
func Default() Sender {
	defaultMu.RLock()
	s := defaultSender
	defaultMu.RUnlock()
	if s != nil {
		return s
	}

	cfg := configSMTP()
	if cfg.Host == "" {
		s = NewLogSender()
	} else {
		s = &SMTPSender{cfg: cfg}
	}
	SetDefault(s)
	return s
}

// SetDefault replaces the process-wide sender. Tests install a LogSender.
func SetDefault(s Sender) {
	defaultMu.Lock()
	defaultSender = s
	defaultMu.Unlock()
}

// ─── SMTP ─────────────────────────────────────────────────────────────────────

// SMTPSender delivers through an SMTP relay: implicit TLS on port 465,
// STARTTLS otherwise.
type SMTPSender struct {
	cfg SMTP
}

func NewSMTPSender(cfg SMTP) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(_ context.Context, m *Message) error {
	if m.err != nil {
		return m.err
	}
	if len(m.To) == 0 {
		return errors.New("mail: no recipients")
	}

	cfg := s.cfg
	raw := m.raw(fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From))
	addr := cfg.Host + ":" + cfg.Port

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if cfg.Port == "465" {
		return s.sendTLS(addr, auth, m.To, raw)
	}
	return smtp.SendMail(addr, auth, cfg.From, m.To, raw)
}

func (s *SMTPSender) sendTLS(addr string, auth smtp.Auth, to []string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("mail: TLS dial: %w", err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (m *Message) raw(from string) []byte {
	contentType := "text/plain"
	if m.HTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.To, ", ") + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return []byte(b.String())
}

// ─── Log ──────────────────────────────────────────────────────────────────────

// LogSender logs messages and keeps them for inspection.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) Send(ctx context.Context, m *Message) error {
	if m.err != nil {
		return m.err
	}
	s.mu.Lock()
	s.sent = append(s.sent, *m)
	s.mu.Unlock()
	logger.WithCtx(ctx).Info("mail: message logged", "to", strings.Join(m.To, ","), "subject", m.Subject)
	return nil
}

// Sent returns a copy of every logged message.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
