// Package mail delivers reports by email.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Settings is a complete and valid SMTP configuration. It is obtained by validating the
// email section of the configuration.
type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Subject  string // may contain a {date} placeholder
}

// SubjectOn returns the subject of a report for day t.
func (s Settings) SubjectOn(t time.Time) string {
	subject := s.Subject
	if subject == "" {
		subject = "Portfolio report {date}"
	}
	return strings.ReplaceAll(subject, "{date}", t.Format("Jan 02, 2006"))
}

// Message is a multipart/alternative email with a text and an HTML body.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
	Date    time.Time
}

// Bytes renders the message in RFC 5322 format.
func (m Message) Bytes() ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	parts := []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", m.Text},
		{"text/html; charset=utf-8", m.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		pw, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// SendFunc delivers a raw message, it has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers messages through an SMTP server.
type Sender struct {
	settings Settings
	send     SendFunc
}

// NewSender returns a Sender for settings. Port 465 uses implicit TLS, any other port
// upgrades the connection with STARTTLS when the server offers it.
func NewSender(settings Settings) *Sender {
	s := &Sender{settings: settings, send: smtp.SendMail}
	if settings.Port == 465 {
		s.send = sendImplicitTLS
	}
	return s
}

// WithSendFunc replaces the delivery function.
func (s *Sender) WithSendFunc(send SendFunc) *Sender {
	s.send = send
	return s
}

// Send delivers a report with both its text and HTML renditions.
func (s *Sender) Send(ctx context.Context, subject, text, html string) error {
	log := zerolog.Ctx(ctx)
	msg, err := Message{From: s.settings.From, To: s.settings.To, Subject: subject, Text: text, HTML: html}.Bytes()
	if err != nil {
		return fmt.Errorf("cannot build message: %w", err)
	}
	addr := net.JoinHostPort(s.settings.Host, strconv.Itoa(s.settings.Port))
	auth := smtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)

	log.Info().Strs("to", s.settings.To).Str("server", addr).Msg("sending report")
	if err := s.send(addr, auth, s.settings.From, s.settings.To, msg); err != nil {
		return fmt.Errorf("cannot send email via %s: %w", addr, err)
	}
	log.Info().Msg("report sent")
	return nil
}

func sendImplicitTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()
	if err := c.Auth(a); err != nil {
		return err
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
