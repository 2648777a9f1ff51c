package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ResendSender posts messages to the Resend HTTP API.
type ResendSender struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendSender constructs a ResendSender.
func NewResendSender(apiKey, from, endpoint string, client *http.Client, logger *slog.Logger) *ResendSender {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendSender{apiKey: apiKey, from: from, endpoint: endpoint, client: client, logger: logger}
}

// Send renders and delivers msg.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	subject, html, err := Render(msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(resendEmail{
		From:    s.from,
		To:      []string{msg.To},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email via resend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("resend api error: %s", resp.Status)
	}
	s.logger.Debug("email sent", "to", msg.To, "template", msg.Template)
	return nil
}
