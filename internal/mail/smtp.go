// Package mail sends the plain-text notification emails the auth flows need.
// Bodies are deliberately minimal; rendering rich templates is someone else's
// job.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type SMTPMailer struct {
	cfg Config
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOneTimeCode(ctx context.Context, to, code string, expiry time.Time) error {
	body := fmt.Sprintf("Your login code is %s.\nIt expires at %s.\nIf you did not request this code, ignore this message.",
		code, expiry.UTC().Format(time.RFC1123))
	return m.send(ctx, to, "Your login code", body)
}

func (m *SMTPMailer) SendLoginAlert(ctx context.Context, to string, at time.Time, ip, device string) error {
	body := fmt.Sprintf("A new login to your account happened at %s from %s (%s).\nIf this was not you, change your password now.",
		at.UTC().Format(time.RFC1123), ip, device)
	return m.send(ctx, to, "New login to your account", body)
}

func (m *SMTPMailer) SendTwoFactorDisabled(ctx context.Context, to, factor string) error {
	body := fmt.Sprintf("Two-factor authentication (%s) was disabled on your account by an administrator.\nIf you did not request this, contact support.", factor)
	return m.send(ctx, to, "Two-factor authentication disabled", body)
}

// send speaks SMTP over a dialed connection so the context deadline actually
// bounds the whole exchange; smtp.SendMail alone has no timeout.
func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
