package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsletter/internal/domain"
)

const maxErrorBody = 4 << 10

// ResendConfig configures the Resend-compatible HTTP mailer.
type ResendConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Resend sends mail through a Resend-compatible JSON API.
type Resend struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewResend(cfg ResendConfig) *Resend {
	return &Resend{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (r *Resend) Send(ctx context.Context, msg domain.Message) error {
	if r.apiKey == "" || r.endpoint == "" {
		return errors.New("resend mailer misconfigured")
	}
	if msg.To == "" {
		return errors.New("missing recipient")
	}

	payload, err := json.Marshal(resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr resendError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("resend error: %s: %s", resp.Status, apiErr.Message)
	}
	return fmt.Errorf("resend error: %s", resp.Status)
}
