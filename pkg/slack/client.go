// Package slack posts messages to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Message is the webhook payload. Text is the notification fallback when
// Blocks are present.
type Message struct {
	Channel   string  `json:"channel,omitempty"`
	Text      string  `json:"text"`
	Username  string  `json:"username,omitempty"`
	IconEmoji string  `json:"icon_emoji,omitempty"`
	Blocks    []Block `json:"blocks,omitempty"`
}

// Block is a Block Kit layout block.
type Block struct {
	Type   string  `json:"type"`
	Text   *Text   `json:"text,omitempty"`
	Fields []*Text `json:"fields,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Header returns a plain-text header block.
func Header(text string) Block {
	return Block{Type: "header", Text: &Text{Type: "plain_text", Text: text}}
}

// Section returns a markdown section block.
func Section(markdown string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: markdown}}
}

// Fields returns a section block laid out as two-column markdown fields.
func Fields(markdown ...string) Block {
	b := Block{Type: "section"}
	for _, f := range markdown {
		b.Fields = append(b.Fields, &Text{Type: "mrkdwn", Text: f})
	}
	return b
}

// Client posts messages and returns an identifier for the posted message.
type Client interface {
	Post(ctx context.Context, msg Message) (string, error)
}

// Option configures the webhook client.
type Option func(*webhookClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *webhookClient) {
		c.http = hc
	}
}

// WithRateLimit throttles posts to rps messages per second.
func WithRateLimit(rps float64) Option {
	return func(c *webhookClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

type webhookClient struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

// NewWebhook creates a client for the given incoming webhook URL. Slack
// allows roughly one message per second per webhook.
func NewWebhook(url string, opts ...Option) Client {
	c := &webhookClient{
		url:     url,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// Post sends msg. Incoming webhooks answer with a bare "ok", in which case a
// local id is returned. Endpoints that answer with a JSON body carrying "ts"
// return that timestamp.
func (c *webhookClient) Post(ctx context.Context, msg Message) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "slack: rate limit wait")
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", eris.Wrap(err, "slack: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "slack: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "slack: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 400 {
		return "", eris.Errorf("slack: webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var r apiResponse
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return "", eris.Wrap(err, "slack: unmarshal response")
		}
		if !r.OK {
			return "", eris.Errorf("slack: post rejected: %s", r.Error)
		}
		if r.TS != "" {
			return r.TS, nil
		}
	}
	return "webhook-" + uuid.NewString(), nil
}
