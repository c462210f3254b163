package otp

import (
	"context"
	"errors"
	"net/smtp"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestGenerate(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender("mail.local", "2525", "user", "pass", "no-reply@restaurant.local")

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "owner@example.com", "123456"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "123456")
	assert.Contains(t, string(gotMsg), "To: owner@example.com")
}

func TestSMTPSender_SendError(t *testing.T) {
	s := NewSMTPSender("mail.local", "2525", "user", "pass", "from@x.io")
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := s.Send(context.Background(), "owner@example.com", "123456")
	assert.ErrorContains(t, err, "connection refused")
}
