package notificator

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/onchainradar/radar/internal/models"
	"github.com/onchainradar/radar/pkg/logger"
)

type EmailNotificator struct {
	logger *logger.Logger

	SMTPHost   string
	SMTPPort   int
	SMTPSender string

	SMTPAuth smtp.Auth

	// sendMail is send, replaced in tests
	sendMail func(ctx context.Context, addr, from string, to []string, msg []byte) error
}

func NewEmailNotificator(logger *logger.Logger, SMTPHost string, SMTPPort int, SMTPUser string, SMTPPassword string, SMTPSender string) *EmailNotificator {
	var auth smtp.Auth
	if SMTPUser != "" {
		auth = smtp.PlainAuth("", SMTPUser, SMTPPassword, SMTPHost)
	}

	e := &EmailNotificator{
		logger:     logger,
		SMTPAuth:   auth,
		SMTPHost:   SMTPHost,
		SMTPPort:   SMTPPort,
		SMTPSender: SMTPSender,
	}
	e.sendMail = e.send
	return e
}

// Deliver mails the message to recipient.
func (e *EmailNotificator) Deliver(ctx context.Context, recipient, message, link string) (*models.Delivery, error) {
	addr := net.JoinHostPort(e.SMTPHost, strconv.Itoa(e.SMTPPort))
	body := message
	if link != "" {
		body += "\r\n\r\n" + link
	}
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.SMTPSender,
		recipient,
		"Onchain Radar alert",
		body,
	)

	if err := e.sendMail(ctx, addr, e.SMTPSender, []string{recipient}, []byte(msg)); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return &models.Delivery{Success: true}, nil
}

// send is smtp.SendMail over a connection that is closed once ctx is done, so
// a stalled relay never outlives the call.
func (e *EmailNotificator) send(ctx context.Context, addr, from string, to []string, msg []byte) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, e.SMTPHost)
	if err != nil {
		conn.Close()
		return withCause(ctx, err)
	}
	defer c.Close()

	if err := e.converse(c, from, to, msg); err != nil {
		return withCause(ctx, err)
	}
	return nil
}

func (e *EmailNotificator) converse(c *smtp.Client, from string, to []string, msg []byte) error {
	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: e.SMTPHost}); err != nil {
			return err
		}
	}
	if e.SMTPAuth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(e.SMTPAuth); err != nil {
				return err
			}
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

// withCause reports the ctx error in place of the i/o error its cancellation
// produced.
func withCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
