// Package mailer sends plain-text notification mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bloh/internal/config"
	"bloh/internal/middleware"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

// Message is one plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a batch of messages and reports how many went out.
type Mailer interface {
	Send(ctx context.Context, msgs []Message) (int, error)
}

// SMTPMailer sends a batch over one SMTP connection, paced by a token bucket
// so a burst of subscriber notices does not trip relay limits.
type SMTPMailer struct {
	dial    func() (gomail.SendCloser, error)
	from    string
	limiter *rate.Limiter
}

// NewSMTPMailer builds a mailer from config. perSecond <= 0 disables pacing.
func NewSMTPMailer(host string, port int, username, password, from string, perSecond float64) *SMTPMailer {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &SMTPMailer{
		dial:    gomail.NewDialer(host, port, username, password).Dial,
		from:    from,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send delivers msgs on a single connection. A rejected recipient does not stop
// the rest of the batch; pacing or dial failures do.
func (m *SMTPMailer) Send(ctx context.Context, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	sender, err := m.dial()
	if err != nil {
		return 0, fmt.Errorf("dial smtp: %w", err)
	}
	defer sender.Close()

	sent := 0
	var errs []error
	for _, msg := range msgs {
		if err := m.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mail pacing: %w", err))
			break
		}
		if err := gomail.Send(sender, m.build(msg)); err != nil {
			errs = append(errs, fmt.Errorf("send mail to %s: %w", msg.To, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (m *SMTPMailer) build(msg Message) *gomail.Message {
	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", msg.Body)
	return out
}

// LogMailer logs messages instead of sending them. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msgs []Message) (int, error) {
	for _, msg := range msgs {
		middleware.Logger.InfoContext(ctx, "mail delivery disabled, message dropped",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
		)
	}
	return len(msgs), nil
}

// New returns an SMTP mailer when SMTP_HOST is set, otherwise a LogMailer.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.MailRatePerSecond)
}
