// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"context"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/ovozbot/ovoz/models"
)

// Mailer delivers a verification code to an email address. A failed send is
// reported, never retried here; the wizard lets the user resubmit the step.
type Mailer interface {
	SendCode(ctx context.Context, to, code string) error
}

// SMTP sends verification codes over SMTP.
type SMTP struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTP(host string, port int, user, pass, from string) *SMTP {
	return &SMTP{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTP) SendCode(ctx context.Context, to, code string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("%w: bad from address: %v", models.ErrDeliveryFailure, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: bad recipient: %v", models.ErrDeliveryFailure, err)
	}
	msg.Subject("Your verification code")
	msg.SetBodyString(mail.TypeTextPlain,
		fmt.Sprintf("Your verification code is: %s\n\nIt is valid for 5 minutes. Do not share it with anyone.", code))

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.user),
		mail.WithPassword(s.pass),
		mail.WithTimeout(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %v", models.ErrDeliveryFailure, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", models.ErrDeliveryFailure, err)
	}
	return nil
}
