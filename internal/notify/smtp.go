package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/bioespinhanews/apiserver/internal/apperr"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends mail through an SMTP relay. With UseTLS the connection
// is TLS from the first byte (port 465 style); otherwise smtp.SendMail
// upgrades with STARTTLS when the server offers it.
type SMTPNotifier struct {
	addr string
	auth smtp.Auth
	now  func() time.Time
	send sendFunc
}

func NewSMTPNotifier(cfg config.EmailConfig) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	send := sendFunc(smtp.SendMail)
	if cfg.SMTPUseTLS {
		send = implicitTLSSender(&tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12})
	}
	return &SMTPNotifier{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth: auth,
		now:  time.Now,
		send: send,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return apperr.Service("Could not send email.", err)
	}
	if err := msg.Validate(); err != nil {
		return apperr.Service("Could not send email.", err)
	}
	from, _ := mail.ParseAddress(msg.From)
	to, _ := mail.ParseAddress(msg.To)

	if err := n.send(n.addr, n.auth, from.Address, []string{to.Address}, msg.Render(n.now())); err != nil {
		return apperr.Service("Could not send email.", fmt.Errorf("smtp %s: %w", n.addr, err))
	}
	return nil
}

func implicitTLSSender(tlsCfg *tls.Config) sendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		c, err := smtp.NewClient(conn, tlsCfg.ServerName)
		if err != nil {
			conn.Close()
			return err
		}
		defer c.Close()

		if a != nil {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, rcpt := range to {
			if err := c.Rcpt(rcpt); err != nil {
				return err
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := w.Write(msg); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		return c.Quit()
	}
}
