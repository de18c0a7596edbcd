package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"newsletter/internal/domain"
)

// SMTPConfig configures the SMTP mailer. Empty credentials skip authentication.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SMTP struct {
	addr     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTP{
		addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth:     auth,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

// Send delivers msg. net/smtp has no context support, so ctx is only checked before dialing.
func (s *SMTP) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return errors.New("missing recipient")
	}

	from, err := envelopeAddress(msg.From)
	if err != nil {
		return fmt.Errorf("parse sender: %w", err)
	}

	if err := s.sendMail(s.addr, s.auth, from, []string{msg.To}, s.buildMessage(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTP) buildMessage(msg domain.Message) []byte {
	headers := [][2]string{
		{"From", msg.From},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	return []byte(b.String())
}

// envelopeAddress extracts the bare address from "Name <addr>".
func envelopeAddress(from string) (string, error) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}
