// Package mail sends the few transactional emails Kitchen Table needs.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/config"
	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

const (
	resetSubject = "Reset Your Kitchen Table Password"
	sendTimeout  = 30 * time.Second
)

type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// Mailer delivers mail over SMTP in the background. Delivery failures are
// logged and never reach the caller.
type Mailer struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	resetPage string
	log       logrus.FieldLogger
	send      sendFunc
	wg        sync.WaitGroup
}

func New(cfg *config.Config, log logrus.FieldLogger) *Mailer {
	m := &Mailer{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		from:      cfg.SMTPFrom,
		resetPage: cfg.ResetPageURL(),
		log:       log,
	}
	m.send = m.dialAndSend
	return m
}

// Enabled reports whether an SMTP server is configured.
func (m *Mailer) Enabled() bool {
	return m.host != ""
}

// ResetLink is the page a user follows to choose a new password.
func (m *Mailer) ResetLink(token string) string {
	return m.resetPage + url.PathEscape(token)
}

// SendPasswordReset emails the reset link to the user. Without SMTP the link
// is only logged.
func (m *Mailer) SendPasswordReset(to, token string) {
	link := m.ResetLink(token)
	if !m.Enabled() {
		m.log.WithFields(logrus.Fields{
			"email":      to,
			"reset_link": link,
		}).Warn("SMTP not configured, reset link not emailed")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := m.deliver(ctx, to, resetSubject, resetBody(link)); err != nil {
			m.log.WithField("email", to).WithError(err).Error("failed to send password reset email")
			return
		}
		m.log.WithField("email", to).Info("password reset email sent")
	}()
}

// Wait blocks until every queued email has been handed to the server.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid SMTP_FROM: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (m *Mailer) newClient() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(sendTimeout),
	}
	if m.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.username),
			gomail.WithPassword(m.password),
		)
	}
	return gomail.NewClient(m.host, opts...)
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := m.newClient()
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func resetBody(link string) string {
	return "Hi there,\n\n" +
		"You requested to reset your password for The Kitchen Table.\n\n" +
		"Follow the link below to choose a new one:\n" +
		link + "\n\n" +
		"This link will expire in 1 hour.\n\n" +
		"If you didn't request this, you can safely ignore this email.\n\n" +
		"---\nThe Kitchen Table\n"
}
