package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/launchsignal/api/internal/config"
)

const (
	googleAuthEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint = "https://oauth2.googleapis.com/token"
	googleUserinfoURL   = "https://openidconnect.googleapis.com/v1/userinfo"
	gmailSendURL        = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

	gmailScopes = "https://www.googleapis.com/auth/gmail.send openid email"
)

// GmailClient implements OAuthMailer over the Gmail REST API
type GmailClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
}

// NewGmailClient creates a new Gmail OAuth client
func NewGmailClient(cfg *config.GoogleOAuthConfig) *GmailClient {
	return &GmailClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
	}
}

// AuthCodeURL builds the consent URL the user is redirected to.
// access_type=offline with forced consent is required to receive a
// refresh token on every connect.
func (c *GmailClient) AuthCodeURL(state string) string {
	return buildAuthURL(googleAuthEndpoint, map[string]string{
		"client_id":     c.clientID,
		"redirect_uri":  c.redirectURI,
		"response_type": "code",
		"scope":         gmailScopes,
		"access_type":   "offline",
		"prompt":        "consent",
		"state":         state,
	})
}

// ExchangeCode trades an authorization code for a token set
func (c *GmailClient) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	return c.tokenRequest(ctx, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  c.redirectURI,
		"grant_type":    "authorization_code",
		"code":          code,
	})
}

// RefreshToken obtains a fresh access token from a stored refresh token
func (c *GmailClient) RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error) {
	return c.tokenRequest(ctx, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

func (c *GmailClient) tokenRequest(ctx context.Context, params map[string]string) (*OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenEndpoint, formBody(params))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Service: "google oauth", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var token OAuthToken
	if err := json.Unmarshal(respBody, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &token, nil
}

// UserEmail resolves the mailbox address behind an access token
func (c *GmailClient) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Service: "google userinfo", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(respBody, &info); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return info.Email, nil
}

// SendMail sends an RFC 822 message through the user's own mailbox and
// returns the provider message id
func (c *GmailClient) SendMail(ctx context.Context, accessToken string, msg *OutboundMail) (string, error) {
	raw := base64.URLEncoding.EncodeToString([]byte(buildRFC822(msg)))

	payload := map[string]string{"raw": raw}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gmailSendURL, strings.NewReader(string(bodyBytes)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Service: "gmail", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var sent struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &sent); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return sent.ID, nil
}

// buildRFC822 renders a plain-text message in wire format.
func buildRFC822(msg *OutboundMail) string {
	var b strings.Builder
	if msg.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\r\n", msg.FromName, msg.FromEmail)
	} else {
		fmt.Fprintf(&b, "From: %s\r\n", msg.FromEmail)
	}
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
