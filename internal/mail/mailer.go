// Package mail delivers contact form submissions.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Zachkp/portfolio/internal/config"
)

// Message is one contact form submission.
type Message struct {
	Name    string
	Email   string
	Message string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when credentials are configured, otherwise a
// mailer that only logs submissions.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Configured() {
		return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
	}
	log.Info("SMTP credentials not configured, contact submissions will only be logged")
	return LogMailer{}
}

// LogMailer accepts every submission and writes it to the log.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.WithFields(log.Fields{
		"name":  msg.Name,
		"email": msg.Email,
	}).Info("Contact form submitted")
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends submissions through an SMTP relay with plain auth.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	send sendFunc
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, m.cfg.User, []string{m.cfg.To}, compose(m.cfg, msg)); err != nil {
		log.WithError(err).Error("Error sending email")
		return fmt.Errorf("send contact email: %w", err)
	}

	log.WithField("name", msg.Name).Info("Email sent successfully")
	return nil
}

func compose(cfg config.SMTPConfig, msg Message) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", oneLine(msg.Name))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, msg.Name, msg.Email, msg.Message)

	return []byte("To: " + cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.User + "\r\n" +
		"Reply-To: " + oneLine(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

// oneLine strips line breaks so visitor input cannot add headers.
func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
