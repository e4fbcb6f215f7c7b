package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/wakelight/internal/clock"
)

const (
	// expiryMargin is subtracted from a JWT's exp before it is reused.
	expiryMargin = 30 * time.Second

	requestTimeout = 10 * time.Second

	// maxResponseSize caps the token reply body.
	maxResponseSize = 64 << 10
)

// Config holds the credentials exchanged for a token.
type Config struct {
	TokenAddress string
	APIKey       string
	Password     string
}

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

type tokenRequest struct {
	Key      string `json:"key"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Response string `json:"response"`
}

// Client fetches and caches access tokens. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	clock  clock.Clock
	logger Logger

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a token client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: requestTimeout},
		clock:  clock.Real{},
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a usable access token, from the cache when possible.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.cached != "" && now.Before(c.expires) {
		return c.cached, nil
	}
	c.cached = ""

	token, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}

	if exp, ok := expiry(token); ok && now.Before(exp.Add(-expiryMargin)) {
		c.cached = token
		c.expires = exp.Add(-expiryMargin)
		c.logger.Debug("access token cached", "expires", exp)
	}
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = ""
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	body, err := json.Marshal(tokenRequest{Key: c.cfg.APIKey, Password: c.cfg.Password})
	if err != nil {
		return "", fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenAddress, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if out.Response == "" {
		return "", ErrEmptyToken
	}
	return out.Response, nil
}

// expiry reads the exp claim of a JWT without verifying it.
func expiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
