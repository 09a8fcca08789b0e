// Package ses implements the provider interface on AWS SES v2. Domain
// identities map onto SES email identities with DKIM verification; the
// DKIM token set is the DNS material tenants publish.
package ses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/courier/internal/config"
	"github.com/ignite/courier/internal/provider"
)

// Client is an AWS SES v2 provider client.
type Client struct {
	client *sesv2.Client
	region string
}

// New creates a new SES provider client with static credentials. Missing
// credentials are a configuration error, same contract as the mailgun
// driver.
func New(ctx context.Context, cfg appconfig.SESConfig) (*Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("ses: credentials are required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Client{
		client: sesv2.NewFromConfig(awsCfg),
		region: cfg.Region,
	}, nil
}

// GetDomain fetches the SES identity for domain and maps its DKIM
// verification status onto the local tri-state.
func (c *Client) GetDomain(ctx context.Context, domain string) (*provider.Domain, error) {
	out, err := c.client.GetEmailIdentity(ctx, &sesv2.GetEmailIdentityInput{
		EmailIdentity: aws.String(domain),
	})
	if err != nil {
		return nil, translateErr(err, domain)
	}

	d := &provider.Domain{Name: domain, Status: provider.StatusFailed}
	if out.DkimAttributes != nil {
		d.Status = mapDkimStatus(out.DkimAttributes.Status)
		d.DKIMTokens = out.DkimAttributes.Tokens
	}
	return d, nil
}

// CreateDomain registers domain as an SES email identity with EasyDKIM.
func (c *Client) CreateDomain(ctx context.Context, domain string) (*provider.Domain, error) {
	out, err := c.client.CreateEmailIdentity(ctx, &sesv2.CreateEmailIdentityInput{
		EmailIdentity: aws.String(domain),
	})
	if err != nil {
		return nil, translateErr(err, domain)
	}

	d := &provider.Domain{Name: domain, Status: provider.StatusPending}
	if out.DkimAttributes != nil {
		d.DKIMTokens = out.DkimAttributes.Tokens
	}
	return d, nil
}

// SendMessage sends through the SES v2 simple-content API. SES tracks
// opens/clicks via its configuration set; the bulk precedence header is
// attached here to match the mailgun driver's behavior.
func (c *Client) SendMessage(ctx context.Context, domain string, msg *provider.Message) (string, error) {
	headers := []types.MessageHeader{
		{Name: aws.String("Precedence"), Value: aws.String("bulk")},
	}
	for k, v := range msg.Headers {
		headers = append(headers, types.MessageHeader{Name: aws.String(k), Value: aws.String(v)})
	}

	body := &types.Body{
		Html: &types.Content{Data: aws.String(msg.HTML)},
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text)}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    body,
				Headers: headers,
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := c.client.SendEmail(ctx, input)
	if err != nil {
		return "", translateErr(err, domain)
	}
	if out.MessageId == nil {
		return "", fmt.Errorf("ses: no message id in response")
	}
	return *out.MessageId, nil
}

// translateErr maps SES API errors onto the provider sentinels.
func translateErr(err error, domain string) error {
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return provider.ErrDomainNotFound
	}
	var exists *types.AlreadyExistsException
	if errors.As(err, &exists) {
		return provider.ErrDomainExists
	}
	var tooMany *types.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return &provider.RateLimitError{RetryAfter: 5 * time.Second} // SES reports no Retry-After
	}
	return fmt.Errorf("ses: %s: %w", domain, err)
}

func mapDkimStatus(s types.DkimStatus) provider.DomainStatus {
	switch s {
	case types.DkimStatusSuccess:
		return provider.StatusSuccess
	case types.DkimStatusPending, types.DkimStatusNotStarted:
		return provider.StatusPending
	default:
		return provider.StatusFailed
	}
}
