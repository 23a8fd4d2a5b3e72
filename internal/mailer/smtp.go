package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/charmops/charmops-backend/internal/config"
)

const (
	smtpDialTimeout = 8 * time.Second
	smtpDeadline    = 15 * time.Second
)

type SMTPInviteMailer struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	tmpl   *template.Template
	logger *slog.Logger
}

func NewSMTPInviteMailer(cfg *config.Config, logger *slog.Logger) (*SMTPInviteMailer, error) {
	tmpl, err := template.New("invite").Parse(inviteTemplateHTML)
	if err != nil {
		return nil, fmt.Errorf("parse invite template: %w", err)
	}
	return &SMTPInviteMailer{
		host:   cfg.SMTPHost,
		port:   cfg.SMTPPort,
		user:   cfg.SMTPUser,
		pass:   cfg.SMTPPass,
		from:   cfg.SMTPFrom,
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

func (m *SMTPInviteMailer) SendInvite(ctx context.Context, inv Invitation) error {
	msg, err := m.buildMessage(inv)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "sending invite email", "to", inv.Email, "host", m.host)
	if err := m.send(inv.Email, msg); err != nil {
		return fmt.Errorf("send invite email: %w", err)
	}
	m.logger.InfoContext(ctx, "invite email sent", "to", inv.Email)
	return nil
}

func (m *SMTPInviteMailer) buildMessage(inv Invitation) ([]byte, error) {
	var body bytes.Buffer
	err := m.tmpl.Execute(&body, map[string]string{
		"InviterName": inv.InviterName,
		"Role":        string(inv.Role),
		"AcceptURL":   inv.AcceptURL,
		"Expires":     inv.ExpiresAt.UTC().Format("Jan 2, 2006 15:04 MST"),
	})
	if err != nil {
		return nil, fmt.Errorf("render invite template: %w", err)
	}

	headers := strings.Join([]string{
		fmt.Sprintf("From: CharmOps <%s>", m.from),
		fmt.Sprintf("To: %s", inv.Email),
		"Subject: You have been invited to CharmOps",
		fmt.Sprintf("Message-ID: <%s@charmops>", uuid.NewString()),
		fmt.Sprintf("Date: %s", time.Now().UTC().Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}, "\r\n")
	return []byte(headers), nil
}

func (m *SMTPInviteMailer) send(to string, msg []byte) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	conn, err := net.DialTimeout("tcp", addr, smtpDialTimeout)
	if err != nil {
		return err
	}
	// deadline covers the whole SMTP conversation, not just the dial
	_ = conn.SetDeadline(time.Now().Add(smtpDeadline))

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if m.user != "" {
		auth := smtp.PlainAuth("", m.user, m.pass, m.host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
