package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// smtpTimeout bounds a whole SMTP exchange when the caller's context carries
// no deadline of its own.
const smtpTimeout = 30 * time.Second

// SendMailFunc delivers one message. Implementations must give up once ctx
// is done.
type SendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends an order confirmation to the customer over SMTP.
// Confirmations without a customer email are skipped.
type EmailNotifier struct {
	addr     string
	auth     smtp.Auth
	sender   string
	sendMail SendMailFunc
}

func NewEmailNotifier(host, port, username, password, sender string) *EmailNotifier {
	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailNotifier{
		addr:     fmt.Sprintf("%s:%s", host, port),
		auth:     auth,
		sender:   sender,
		sendMail: sendMail,
	}
}

// WithSendMail replaces the SMTP transport, mainly for tests.
func (n *EmailNotifier) WithSendMail(fn SendMailFunc) *EmailNotifier {
	n.sendMail = fn
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(ctx context.Context, msg OrderConfirmation) error {
	if msg.CustomerEmail == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := n.buildMessage(msg)
	if err := n.sendMail(ctx, n.addr, n.auth, n.sender, []string{msg.CustomerEmail}, body); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", msg.CustomerEmail, err)
	}
	return nil
}

func (n *EmailNotifier) buildMessage(msg OrderConfirmation) []byte {
	greeting := "Hello"
	if msg.CustomerName != "" {
		greeting = "Hello " + msg.CustomerName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: Order confirmation %s\r\n", n.sender, msg.CustomerEmail, msg.OrderID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "%s,\r\n\r\nThanks for your order. We received your payment of %s %s.\r\n\r\nOrder: %s\r\nPayment reference: %s\r\n",
		greeting, FormatAmount(msg.Amount), msg.Currency, msg.OrderID, msg.PaymentID)
	return []byte(b.String())
}

// sendMail is smtp.SendMail bound to ctx: the dial honours cancellation and
// every read and write on the connection stops at the context deadline, so a
// server that stalls mid-exchange cannot pin a worker.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) (err error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("smtp address %q: %w", addr, err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(smtpTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		if err == nil {
			return
		}
		// The socket deadline can fire a moment before ctx's own timer.
		switch {
		case ctx.Err() != nil:
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		case hasDeadline && !time.Now().Before(deadline):
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
	}()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server does not support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO: %w", err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end of data: %w", err)
	}
	return c.Quit()
}
