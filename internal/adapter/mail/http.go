package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpSender posts messages to a transactional mail API as JSON with a
// bearer key.
type httpSender struct {
	url    string
	apiKey string
	client *http.Client
}

type httpRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type httpResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newHTTPSender(cfg Config) (*httpSender, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("mail: MAIL_API_URL is required for the http provider")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpSender{
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *httpSender) send(ctx context.Context, from string, msg Message) (string, string, error) {
	payload, err := json.Marshal(httpRequest{From: from, To: msg.To, Subject: msg.Subject, Text: msg.Body})
	if err != nil {
		return "", "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var out httpResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode >= 400 {
		reason := out.Error
		if reason == "" {
			reason = out.Message
		}
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return "", "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, reason)
	}

	status := out.Status
	if status == "" {
		status = "accepted"
	}
	return status, out.ID, nil
}
