package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/launchsignal/api/internal/config"
)

// SESClient implements FallbackMailer over Amazon SES. It sends from the
// platform's verified address when no delegated provider is usable.
type SESClient struct {
	api         *sesv2.Client
	senderEmail string
	senderName  string
}

// NewSESClient creates a new SES client with static credentials
func NewSESClient(cfg *config.AWSConfig) *SESClient {
	api := sesv2.New(sesv2.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})
	return &SESClient{
		api:         api,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
	}
}

// SendMail sends a plain-text message and returns the SES message id
func (c *SESClient) SendMail(ctx context.Context, msg *OutboundMail) (string, error) {
	from := c.senderEmail
	if c.senderName != "" {
		from = fmt.Sprintf("%s <%s>", c.senderName, c.senderEmail)
	}

	out, err := c.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send failed: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// IsConfigured returns true if the client has valid configuration
func (c *SESClient) IsConfigured() bool {
	return c.senderEmail != "" && c.api != nil
}
