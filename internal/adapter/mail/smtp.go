package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// smtpSender relays messages through an SMTP server, upgrading to TLS when
// the server offers STARTTLS.
type smtpSender struct {
	addr     string
	host     string
	username string
	password string
	timeout  time.Duration
}

func newSMTPSender(cfg Config) (*smtpSender, error) {
	host, _, err := net.SplitHostPort(cfg.SMTPAddr)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid SMTP_ADDR %q: %w", cfg.SMTPAddr, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &smtpSender{
		addr:     cfg.SMTPAddr,
		host:     host,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		timeout:  timeout,
	}, nil
}

var headerSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

func (s *smtpSender) send(ctx context.Context, from string, msg Message) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return "", "", fmt.Errorf("dialing %s: %w", s.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return "", "", fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return "", "", fmt.Errorf("starttls: %w", err)
		}
	}
	if s.username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return "", "", fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return "", "", fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return "", "", fmt.Errorf("smtp RCPT TO: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return "", "", fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(compose(from, msg)); err != nil {
		w.Close()
		return "", "", fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("smtp message rejected: %w", err)
	}

	_ = c.Quit()
	return "sent", "", nil
}

func compose(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerSanitizer.Replace(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerSanitizer.Replace(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerSanitizer.Replace(msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
