package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ticker-scanner/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
	defaultLinkBase   = "https://discord.com/channels"
)

// RESTClient talks to the chat platform's HTTP API. It implements
// HistorySource and Sink.
type RESTClient struct {
	baseURL     string
	token       string
	guildID     string
	agentID     string
	agentHandle string
	linkBase    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
}

// RESTOption configures RESTClient.
type RESTOption func(*RESTClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) RESTOption {
	return func(c *RESTClient) {
		c.client = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts per request.
func WithMaxRetries(n int) RESTOption {
	return func(c *RESTClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial backoff delay between retries.
func WithRetryDelay(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.retryDelay = d
	}
}

// WithAgent identifies the ingestion agent so its own messages and
// messages addressed to it can be flagged.
func WithAgent(userID, handle string) RESTOption {
	return func(c *RESTClient) {
		c.agentID = userID
		c.agentHandle = handle
	}
}

// WithGuild sets the guild used when synthesizing permalinks.
func WithGuild(guildID string) RESTOption {
	return func(c *RESTClient) {
		c.guildID = guildID
	}
}

// NewRESTClient creates a chat platform REST client.
func NewRESTClient(baseURL, token string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		baseURL:    baseURL,
		token:      token,
		linkBase:   defaultLinkBase,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// messageWire is the platform's message payload.
type messageWire struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Bot        bool   `json:"bot"`
	} `json:"author"`
	Mentions []struct {
		ID string `json:"id"`
	} `json:"mentions"`
}

// FetchAfter returns up to limit messages strictly after the cursor,
// oldest-first. An unknown channel yields an empty page, not an error.
func (c *RESTClient) FetchAfter(ctx context.Context, channelID string, after domain.Cursor, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages?after=%s&limit=%d",
		c.baseURL, url.PathEscape(channelID), url.QueryEscape(string(after)), limit)

	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch history for channel %s: %w", channelID, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var wire []messageWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parse history page: %w", err)
	}

	msgs := make([]*domain.ChatMessage, 0, len(wire))
	for i := range wire {
		msgs = append(msgs, c.convert(&wire[i]))
	}
	// The API pages newest-first; callers want oldest-first.
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ID.Less(msgs[j].ID)
	})
	return msgs, nil
}

// Post sends text to a channel.
func (c *RESTClient) Post(ctx context.Context, channelID, text string) error {
	payload, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("marshal post payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(channelID))
	if _, _, err := c.do(ctx, http.MethodPost, endpoint, payload); err != nil {
		return fmt.Errorf("post to channel %s: %w", channelID, err)
	}
	return nil
}

// convert maps a wire message onto the domain type.
func (c *RESTClient) convert(w *messageWire) *domain.ChatMessage {
	name := w.Author.GlobalName
	if name == "" {
		name = w.Author.Username
	}

	addressed := c.agentHandle != "" && strings.Contains(w.Content, c.agentHandle)
	for _, m := range w.Mentions {
		if c.agentID != "" && m.ID == c.agentID {
			addressed = true
			break
		}
	}

	return &domain.ChatMessage{
		ID:             domain.Cursor(w.ID),
		ChannelID:      w.ChannelID,
		AuthorID:       w.Author.ID,
		AuthorName:     name,
		Text:           w.Content,
		CreatedAt:      w.Timestamp,
		Permalink:      fmt.Sprintf("%s/%s/%s/%s", c.linkBase, c.guildID, w.ChannelID, w.ID),
		AuthorIsAgent:  w.Author.Bot || (c.agentID != "" && w.Author.ID == c.agentID),
		AddressesAgent: addressed,
	}
}

// do performs one HTTP request with bounded retries and exponential
// backoff on transient failures (network errors, 429, 5xx).
func (c *RESTClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, 0, fmt.Errorf("build request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bot "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, resp.StatusCode, nil
		case resp.StatusCode >= 400:
			return nil, resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))
		case readErr != nil:
			lastErr = readErr
			continue
		}
		return data, resp.StatusCode, nil
	}
	return nil, 0, fmt.Errorf("after %d attempts: %w", c.maxRetries+1, lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// interface checks
var (
	_ HistorySource = (*RESTClient)(nil)
	_ Sink          = (*RESTClient)(nil)
)
