// Package mail delivers rendered emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is one outgoing HTML email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
}

// Config holds SMTP settings.
type Config struct {
	Host        string
	Port        int
	User        string
	Pass        string
	FromAddress string
	FromName    string
}

// SMTPSender sends mail through a relay. With no host configured it only
// logs, so local setups work without a relay.
type SMTPSender struct {
	cfg    Config
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now    func() time.Time
	logger *zap.Logger
}

// NewSMTPSender creates a sender.
func NewSMTPSender(cfg Config, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail, now: time.Now, logger: logger}
}

// Send delivers m. ctx only bounds the wait before dialing.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if strings.ContainsAny(m.To, "\r\n") {
		return fmt.Errorf("invalid recipient %q", m.To)
	}
	if s.cfg.Host == "" {
		s.logger.Info("smtp not configured, email skipped",
			zap.String("to", m.To), zap.String("subject", m.Subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	if err := s.send(addr, auth, s.cfg.FromAddress, []string{m.To}, s.build(m)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(m Message) []byte {
	from := s.cfg.FromAddress
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.FromAddress)
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.Subject) + "\r\n")
	b.WriteString("Date: " + s.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.BodyHTML)
	return []byte(b.String())
}
