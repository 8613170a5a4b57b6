package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// emailAPIPayload is the body the email API expects.
type emailAPIPayload struct {
	Remetente    string `json:"remetente"`
	Destinatario string `json:"destinatario"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
}

// DirectStrategy posts the message straight to the email API endpoint.
type DirectStrategy struct {
	apiURL     string
	httpClient *http.Client
}

// NewDirectStrategy creates a new DirectStrategy.
func NewDirectStrategy(apiURL string, timeout time.Duration) *DirectStrategy {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &DirectStrategy{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Strategy.
func (s *DirectStrategy) Name() string { return "direct" }

// Send implements Strategy.
func (s *DirectStrategy) Send(ctx context.Context, msg *Message) error {
	return postEmailPayload(ctx, s.httpClient, s.apiURL, msg)
}

// postEmailPayload encodes msg in the email API's shape and posts it to url.
// Shared by the direct strategy and the proxy strategies, which wrap the same
// endpoint behind a relay.
func postEmailPayload(ctx context.Context, client *http.Client, url string, msg *Message) error {
	payload := emailAPIPayload{
		Remetente:    msg.From,
		Destinatario: msg.To,
		Subject:      msg.Subject,
		Message:      msg.HTML,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email endpoint returned %d", resp.StatusCode)
	}
	return nil
}
