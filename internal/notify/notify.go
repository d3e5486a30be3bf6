// Package notify delivers the "your date opened up" email. Delivery is
// best-effort: the poller logs a failed send and moves on rather than
// re-queueing, so a subscriber is never spammed once a slot is known open.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
)

type Message struct {
	To      string
	From    string
	Subject string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// OpenSlot composes the notification for one satisfied subscription.
// resortName may be a raw resort id when the display-name lookup missed.
func OpenSlot(to, from, resortName string, date time.Time) Message {
	pretty := date.UTC().Format("2006-01-02")
	return Message{
		To:      to,
		From:    from,
		Subject: fmt.Sprintf("%s has open Ikon reservations!", resortName),
		Text: fmt.Sprintf("The resort you have been monitoring for open reservations, %s, "+
			"now has open spots for %s. This notification will now be cleared; "+
			"if you would like to set another one, please visit the notifier again.", resortName, pretty),
	}
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender sends through a plain-auth SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	mail := email.NewEmail()
	mail.From = msg.From
	mail.To = []string{msg.To}
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Text)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	err := mail.Send(addr, smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send notification to %s: %w", msg.To, err)
	}
	return nil
}
