// Package mail sends plain-text notification emails over SMTP.
package mail

import (
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Sender delivers one message. Implementations do not retry.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender talks to a relay with PLAIN auth when credentials are set.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, Username: username, Password: password, From: from, send: smtp.SendMail}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("mail: header contains line break")
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	if err := s.send(addr, auth, envelopeAddress(s.From), []string{to}, s.message(to, subject, body)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// envelopeAddress strips a display name: "Name <a@b>" becomes "a@b".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}

// LogSender only logs messages. It stands in when no relay is configured.
type LogSender struct{}

func (LogSender) Send(to, subject, _ string) error {
	slog.Info("email not sent, smtp disabled", "to", to, "subject", subject)
	return nil
}
