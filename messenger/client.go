package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const (
	// DefaultGraphURL is the Graph API version the client speaks.
	DefaultGraphURL = "https://graph.facebook.com/v13.0"

	// MaxMessageRunes is the longest text Messenger accepts in one message.
	MaxMessageRunes = 2000
)

// Client sends messages and looks up profiles through the Graph API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another Graph endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outbound calls per second. Zero disables the cap.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithClientLogger sets a custom logger.
// Default is slog.Default().
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Graph API client for a page access token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}
	c := &Client{
		token:   token,
		baseURL: DefaultGraphURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(20), 5),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "messenger-client")
	return c, nil
}

type sendRequest struct {
	Recipient Party       `json:"recipient"`
	Message   sendMessage `json:"message"`
}

type sendMessage struct {
	Text string `json:"text"`
}

// SendText sends text to recipient, splitting it into several messages
// when it exceeds MaxMessageRunes. It reports whether every part was
// accepted.
func (c *Client) SendText(ctx context.Context, recipient, text string) (bool, error) {
	for _, part := range splitMessage(text, MaxMessageRunes) {
		if err := c.send(ctx, recipient, part); err != nil {
			c.logger.Error("failed to send message", "recipient", recipient, "err", err)
			return false, err
		}
	}
	return true, nil
}

func (c *Client) send(ctx context.Context, recipient, text string) error {
	body, err := json.Marshal(sendRequest{Recipient: Party{ID: recipient}, Message: sendMessage{Text: text}})
	if err != nil {
		return err
	}
	endpoint := c.baseURL + "/me/messages?" + url.Values{"access_token": {c.token}}.Encode()
	resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

type profileResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
}

// DisplayName returns the user's name, or "[unknown: psid]" when the
// lookup fails.
func (c *Client) DisplayName(ctx context.Context, psid string) string {
	unknown := "[unknown: " + psid + "]"
	endpoint := c.baseURL + "/" + url.PathEscape(psid) + "?" + url.Values{
		"fields":       {"first_name,last_name,name"},
		"access_token": {c.token},
	}.Encode()

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("profile lookup failed", "psid", psid, "err", err)
		return unknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("profile lookup rejected", "psid", psid, "status", resp.StatusCode)
		return unknown
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		c.logger.Warn("profile response unreadable", "psid", psid, "err", err)
		return unknown
	}
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		name = strings.TrimSpace(profile.Name)
	}
	if name == "" {
		return unknown
	}
	return name
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// splitMessage cuts text into parts of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
