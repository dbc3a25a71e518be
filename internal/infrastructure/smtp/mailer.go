package smtp

import (
	"context"
	"fmt"

	"github.com/go-api-verification/internal/config"
	"github.com/wneessen/go-mail"
)

// Notifier emails verification codes over SMTP.
type Notifier struct {
	client  *mail.Client
	from    string
	content Content
}

func NewNotifier(cfg config.SMTP, content Content) (*Notifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &Notifier{client: client, from: cfg.From, content: content}, nil
}

// Dispatch sends a plain text email with an HTML alternative carrying code.
func (n *Notifier) Dispatch(ctx context.Context, email, code string) error {
	msg, err := n.buildMessage(email, code)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (n *Notifier) buildMessage(email, code string) (*mail.Msg, error) {
	body, err := render(n.content, email, code)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(body.Subject)
	msg.SetBodyString(mail.TypeTextPlain, body.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, body.HTML)
	return msg, nil
}
