package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
)

// emailDeliverer sends rendered messages over SMTP via net/smtp.
type emailDeliverer struct {
	addr    string
	auth    smtp.Auth
	from    string
	to      []string
	subject string
}

func newEmailDeliverer(t config.Trigger) *emailDeliverer {
	var auth smtp.Auth
	if t.Username != "" {
		auth = smtp.PlainAuth("", t.Username, t.Password, t.SMTPHost)
	}
	return &emailDeliverer{
		addr:    fmt.Sprintf("%s:%d", t.SMTPHost, t.SMTPPort),
		auth:    auth,
		from:    t.From,
		to:      t.Recipients,
		subject: fmt.Sprintf("chainmonitor: %s", t.Name),
	}
}

func (d *emailDeliverer) deliver(ctx context.Context, rendered string, match filter.Match) error {
	if len(d.to) == 0 {
		return fmt.Errorf("%w: email trigger has no recipients", ErrPermanent)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", d.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(d.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", d.subject)
	msg.WriteString("\r\n")
	msg.WriteString(rendered)

	// net/smtp has no context-aware API, so ctx is not applied to the dial
	// or the send, and nothing here cuts a stuck attempt short.
	if err := smtp.SendMail(d.addr, d.auth, d.from, d.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending email via %s: %w", d.addr, err)
	}
	return nil
}
