package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 15 * time.Second

// TokenSource supplies the access token appended to the websocket address.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that cache.
type invalidator interface {
	Invalidate()
}

func defaultDialer() *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
}

// extractHost returns the host[:port] of a wss:// address.
func extractHost(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil || u.Scheme != "wss" || u.Host == "" {
		return "", fmt.Errorf("%w: unable to extract host from address: %s", ErrInvalidAddress, address)
	}
	return u.Host, nil
}

// buildRequest returns the dial target and handshake headers for a token.
func buildRequest(address, token, apiKey string) (string, http.Header, error) {
	host, err := extractHost(address)
	if err != nil {
		return "", nil, err
	}

	header := http.Header{}
	header.Set("Host", host)
	if apiKey != "" {
		header.Set("Sec-WebSocket-Protocol", apiKey)
	}
	return strings.TrimSuffix(address, "/") + "/" + token, header, nil
}

// connect fetches a token and performs the websocket handshake.
func (s *Supervisor) connect(ctx context.Context) (*websocket.Conn, error) {
	token, err := s.deps.Tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	target, header, err := buildRequest(s.cfg.Address, token, s.cfg.APIKey)
	if err != nil {
		return nil, err
	}

	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // handshake body is not used
	}
	if err != nil {
		if inv, ok := s.deps.Tokens.(invalidator); ok {
			inv.Invalidate()
		}
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			return nil, fmt.Errorf("%w: status %d: %w", ErrDial, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrDial, err)
	}
	return conn, nil
}
