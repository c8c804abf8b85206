package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/launchsignal/api/internal/config"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"

	graphScopes = "offline_access Mail.Send User.Read"
)

// GraphClient implements OAuthMailer over the Microsoft Graph API
type GraphClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
	tenant       string
}

// NewGraphClient creates a new Microsoft Graph OAuth client
func NewGraphClient(cfg *config.MicrosoftOAuthConfig) *GraphClient {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return &GraphClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		tenant:       tenant,
	}
}

func (c *GraphClient) authorizeEndpoint() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", c.tenant)
}

func (c *GraphClient) tokenEndpoint() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.tenant)
}

// AuthCodeURL builds the consent URL the user is redirected to
func (c *GraphClient) AuthCodeURL(state string) string {
	return buildAuthURL(c.authorizeEndpoint(), map[string]string{
		"client_id":     c.clientID,
		"redirect_uri":  c.redirectURI,
		"response_type": "code",
		"response_mode": "query",
		"scope":         graphScopes,
		"state":         state,
	})
}

// ExchangeCode trades an authorization code for a token set
func (c *GraphClient) ExchangeCode(ctx context.Context, code string) (*OAuthToken, error) {
	return c.tokenRequest(ctx, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  c.redirectURI,
		"grant_type":    "authorization_code",
		"scope":         graphScopes,
		"code":          code,
	})
}

// RefreshToken obtains a fresh access token from a stored refresh token
func (c *GraphClient) RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error) {
	return c.tokenRequest(ctx, map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "refresh_token",
		"scope":         graphScopes,
		"refresh_token": refreshToken,
	})
}

func (c *GraphClient) tokenRequest(ctx context.Context, params map[string]string) (*OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), formBody(params))
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
		return nil, &APIError{Service: "microsoft oauth", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var token OAuthToken
	if err := json.Unmarshal(respBody, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &token, nil
}

// UserEmail resolves the mailbox address behind an access token
func (c *GraphClient) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, graphBaseURL+"/me", nil)
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
		return "", &APIError{Service: "microsoft graph", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var me struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.Unmarshal(respBody, &me); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if me.Mail != "" {
		return me.Mail, nil
	}
	return me.UserPrincipalName, nil
}

// graphMessage is the sendMail request shape.
type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []struct {
			EmailAddress struct {
				Address string `json:"address"`
			} `json:"emailAddress"`
		} `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

// SendMail sends a message through the user's own mailbox. Graph's
// sendMail endpoint returns 202 with an empty body, so there is no
// provider message id to return.
func (c *GraphClient) SendMail(ctx context.Context, accessToken string, msg *OutboundMail) (string, error) {
	var gm graphMessage
	gm.Message.Subject = msg.Subject
	gm.Message.Body.ContentType = "Text"
	gm.Message.Body.Content = msg.Body
	gm.Message.ToRecipients = make([]struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	}, 1)
	gm.Message.ToRecipients[0].EmailAddress.Address = msg.To
	gm.SaveToSentItems = true

	bodyBytes, err := json.Marshal(gm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphBaseURL+"/me/sendMail", bytes.NewReader(bodyBytes))
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{Service: "microsoft graph", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return "", nil
}
