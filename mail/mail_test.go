package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_SubjectOn(t *testing.T) {
	day := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Portfolio report Jan 13, 2025", Settings{}.SubjectOn(day))
	assert.Equal(t, "Folio Jan 13, 2025 daily", Settings{Subject: "Folio {date} daily"}.SubjectOn(day))
}

func TestMessage_Bytes(t *testing.T) {
	msg, err := Message{
		From:    "me@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Report",
		Text:    "# Holdings",
		HTML:    "<h1>Holdings</h1>",
		Date:    time.Date(2025, 1, 13, 18, 0, 0, 0, time.UTC),
	}.Bytes()
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: me@example.com\r\n")
	assert.Contains(t, s, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "text/plain; charset=utf-8")
	assert.Contains(t, s, "<h1>Holdings</h1>")
	assert.Less(t, strings.Index(s, "# Holdings"), strings.Index(s, "<h1>"), "the text part comes first")
}

func TestSender_Send(t *testing.T) {
	settings := Settings{Host: "smtp.example.com", Port: 587, Username: "me", Password: "secret", From: "me@example.com", To: []string{"you@example.com"}}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewSender(settings).WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})
	require.NoError(t, s.Send(context.Background(), "Report", "text", "<p>html</p>"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "me@example.com", gotFrom)
	assert.Equal(t, []string{"you@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "<p>html</p>")

	failing := NewSender(settings).WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay denied")
	})
	err := failing.Send(context.Background(), "Report", "text", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay denied")
}
