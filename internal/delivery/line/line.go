// Package line delivers push messages through the LINE Messaging API.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the LINE push message endpoint.
const DefaultEndpoint = "https://api.line.me/v2/bot/message/push"

// defaultTimeout bounds a single push attempt.
const defaultTimeout = 30 * time.Second

// ErrRetryable wraps transport failures and 5xx/429 responses so the retry
// policy can tell them apart from hard rejections.
var ErrRetryable = errors.New("retryable delivery failure")

// Config captures the subset of LINE push behaviour we need.
type Config struct {
	// Endpoint overrides DefaultEndpoint, for tests and proxies.
	Endpoint string
	// ChannelToken is the long-lived channel access token.
	ChannelToken string
	Timeout      time.Duration
	Client       *http.Client
}

// Client sends text push messages to a single LINE user.
type Client struct {
	endpoint     string
	channelToken string
	client       *http.Client
}

// NewClient builds a LINE push client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.ChannelToken)
	if token == "" {
		return nil, errors.New("line channel token is required")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:     endpoint,
		channelToken: token,
		client:       hc,
	}, nil
}

type pushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

// Push sends one text message to the user. Transport failures and 429/5xx
// responses wrap ErrRetryable; other non-2xx responses are hard failures the
// caller must not retry.
func (c *Client) Push(ctx context.Context, userID, text string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if text == "" {
		return errors.New("message text is required")
	}

	body, err := json.Marshal(pushRequest{
		To:       userID,
		Messages: []pushMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return drainSuccess(resp)
	}
	return c.handleErrorResponse(resp)
}

// IsRetryable reports whether a Push error is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

func drainSuccess(resp *http.Response) error {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("drain push response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	closeErr := resp.Body.Close()
	if readErr != nil {
		respBody = nil
	}
	_ = closeErr

	detail := strings.TrimSpace(string(respBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: line push %s: %s", ErrRetryable, resp.Status, detail)
	}
	// 4xx means the request itself is wrong; retrying cannot help.
	return fmt.Errorf("line push rejected with %s: %s", resp.Status, detail)
}
