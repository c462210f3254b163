// Package otp issues numeric one-time codes and delivers them to users.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/smtp"
	"strings"

	"restaurant-ordering-api/logger"
)

const Digits = 6

var maxCode = big.NewInt(1_000_000)

// Generate returns a zero-padded random code of Digits digits.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, maxCode)
	if err != nil {
		return "", fmt.Errorf("otp: generate: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// Sender delivers a code to the address it was issued for.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// LogSender writes codes to the log; used when no mail server is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email, code string) error {
	logger.FromContext(ctx).Info("otp issued", "email", email, "code", code)
	return nil
}

// SMTPSender mails codes through a plain SMTP relay.
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		send:     smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, email, code string) error {
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	if err := s.send(s.Host+":"+s.Port, auth, s.From, []string{email}, s.message(email, code)); err != nil {
		return fmt.Errorf("otp: send mail to %s: %w", email, err)
	}
	logger.FromContext(ctx).Info("otp mailed", "email", email)
	return nil
}

func (s *SMTPSender) message(to, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Your verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("Your one-time verification code is " + code + ".\r\n")
	return []byte(b.String())
}
