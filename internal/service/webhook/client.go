package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
)

// FallbackReply is used when a successful response carries no reply field.
const FallbackReply = "Sorry, I could not process your request."

const maxResponseBytes = 1 << 20

// ReplyFields lists the response keys read for the reply text, in order.
var ReplyFields = []string{"output", "text", "message"}

var (
	ErrNoEndpoint     = errors.New("webhook url is not configured")
	ErrTimeout        = errors.New("webhook request timed out")
	ErrMalformedReply = errors.New("webhook returned a malformed reply")
)

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
}

// Client posts chat actions to the remote webhook.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient returns a client for url. A nil httpClient uses http.DefaultClient;
// deadlines come from the caller's context.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, httpClient: httpClient}
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.url
}

// SendMessage posts a chat message and extracts the reply text.
func (c *Client) SendMessage(ctx context.Context, req chat.SendRequest) (string, error) {
	req.Action = chat.ActionSendMessage

	body, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	// Valid JSON that is not an object carries no reply field.
	payload, _ := decoded.(map[string]any)
	return ExtractReply(payload), nil
}

// SendFeedback posts a vote. The response body is ignored.
func (c *Client) SendFeedback(ctx context.Context, req chat.FeedbackRequest) error {
	req.Action = chat.ActionFeedback
	_, err := c.post(ctx, req)
	return err
}

// ExtractReply returns the first non-empty string among ReplyFields, or
// FallbackReply.
func ExtractReply(payload map[string]any) string {
	for _, field := range ReplyFields {
		if text, ok := payload[field].(string); ok && text != "" {
			return text
		}
	}
	return FallbackReply
}

func (c *Client) post(ctx context.Context, payload any) ([]byte, error) {
	if c.url == "" {
		return nil, ErrNoEndpoint
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read webhook response: %w", err)
	}
	return body, nil
}
