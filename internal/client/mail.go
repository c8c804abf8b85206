package client

import (
	"context"
	"net/url"
	"strings"
)

// OAuthToken is the token set returned by an authorization-code exchange
// or a refresh.
type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// OutboundMail is a single message handed to a mail transport.
type OutboundMail struct {
	FromEmail string
	FromName  string
	To        string
	Subject   string
	Body      string
}

// OAuthMailer defines the interface for delegated-send mail providers
type OAuthMailer interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthToken, error)
	RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error)
	UserEmail(ctx context.Context, accessToken string) (string, error)
	SendMail(ctx context.Context, accessToken string, msg *OutboundMail) (string, error)
}

// FallbackMailer defines the interface for the platform-level transport
// used when no delegated provider is usable
type FallbackMailer interface {
	SendMail(ctx context.Context, msg *OutboundMail) (string, error)
	IsConfigured() bool
}

// buildAuthURL assembles an authorization endpoint URL from query params.
func buildAuthURL(endpoint string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return endpoint + "?" + q.Encode()
}

// formBody encodes a token endpoint request body.
func formBody(params map[string]string) *strings.Reader {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return strings.NewReader(q.Encode())
}
