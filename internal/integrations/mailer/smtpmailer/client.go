package smtpmailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Client struct {
	addr string
	host string
	from string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

// New builds a client for host:port. Auth is skipped when username is empty.
func New(host string, port int, username, password, from string) *Client {
	if port <= 0 {
		port = 587
	}
	c := &Client{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		from: from,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if username != "" {
		c.auth = smtp.PlainAuth("", username, password, host)
	}
	return c
}

func newClientWithSender(host string, port int, from string, send sendFunc, now func() time.Time) *Client {
	c := New(host, port, "", "", from)
	c.send = send
	c.now = now
	return c
}

func (c *Client) Send(ctx context.Context, msg mailer.Message) error {
	if msg.To == "" {
		return errors.New("smtp: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := c.render(msg)
	if err := c.send(c.addr, c.auth, c.from, []string{msg.To}, body); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}

func (c *Client) render(msg mailer.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", c.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}
