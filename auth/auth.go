package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned when neither a token nor client credentials
// are configured.
var ErrNoCredentials = errors.New("auth: no credentials configured")

// TokenSource returns the bearer token source described by conf. The
// client credentials source caches the token until it expires.
func TokenSource(ctx context.Context, conf Conf) (oauth2.TokenSource, error) {
	switch {
	case conf.Token != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: conf.Token, TokenType: "Bearer"}), nil
	case conf.ClientID != "" && conf.AuthURL != "":
		cc := conf.toOauth2Config()
		return cc.TokenSource(ctx), nil
	default:
		return nil, ErrNoCredentials
	}
}

// HTTPClient returns a client that adds the bearer token to every request.
// Without credentials a plain client is returned.
func HTTPClient(ctx context.Context, conf Conf, timeout time.Duration) *http.Client {
	ts, err := TokenSource(ctx, conf)
	if err != nil {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
	}
}

// Header builds the Authorization header for the websocket handshake. It
// returns an empty header when no credentials are configured.
func Header(ctx context.Context, conf Conf) (http.Header, error) {
	h := http.Header{}
	ts, err := TokenSource(ctx, conf)
	if errors.Is(err, ErrNoCredentials) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return h, nil
}
