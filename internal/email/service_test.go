package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/hms-console/internal/config"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSendWelcome(t *testing.T) {
	d := &fakeDialer{}
	svc := &smtpService{dialer: d, from: "no-reply@hms.local"}

	require.NoError(t, svc.SendWelcome(context.Background(), "grace@example.com", "Grace"))

	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"grace@example.com"}, d.sent[0].GetHeader("To"))
	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Hello Grace")
}

func TestSendWelcomeWrapsDialError(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	svc := &smtpService{dialer: d, from: "no-reply@hms.local"}

	err := svc.SendWelcome(context.Background(), "grace@example.com", "Grace")

	assert.ErrorIs(t, err, d.err)
}

func TestDisabledMailerOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	svc := NewService(config.SMTPConfig{}, zerolog.New(&buf))

	require.NoError(t, svc.SendWelcome(context.Background(), "grace@example.com", "Grace"))
	assert.Contains(t, buf.String(), "welcome mail not sent")
}
