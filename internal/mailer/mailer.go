package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/lifevault/backend/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers account mail through gomail.
type SMTPMailer struct {
	cfg    *config.Config
	dialer *gomail.Dialer
	log    *zap.Logger
}

func NewSMTPMailer(cfg *config.Config, log *zap.Logger) *SMTPMailer {
	var d *gomail.Dialer
	if cfg.SMTPHost != "" {
		d = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	return &SMTPMailer{cfg: cfg, dialer: d, log: log}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, link string) error {
	body, err := RenderVerification(link)
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Verify your LifeVault account", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body, err := RenderPasswordReset(link)
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Reset your LifeVault password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if m.dialer == nil {
		m.log.Warn("smtp not configured, skip email", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.SMTPFrom)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func render(tmplName string, link string) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmplName, struct{ Link string }{link}); err != nil {
		return "", fmt.Errorf("render %s: %w", tmplName, err)
	}
	return buf.String(), nil
}

func RenderVerification(link string) (string, error) {
	return render("verify", link)
}

func RenderPasswordReset(link string) (string, error) {
	return render("reset", link)
}
