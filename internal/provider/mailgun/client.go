// Package mailgun implements the provider interface against the Mailgun
// REST API: domain identities via /v4/domains and message submission via
// /v3/{domain}/messages.
package mailgun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/courier/internal/config"
	"github.com/ignite/courier/internal/pkg/httpretry"
	"github.com/ignite/courier/internal/provider"
)

// Client is a Mailgun API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// New creates a new Mailgun API client. Missing credentials are a
// configuration error: degraded operation is selected explicitly with the
// mock driver, never by silently substituting one here.
func New(cfg config.MailgunConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mailgun: api key is required")
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}, nil
}

// apiError is a non-2xx response from the Mailgun API.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mailgun: API error (status %d): %s", e.StatusCode, e.Message)
}

// do makes a form-encoded HTTP request to the Mailgun API with Basic Auth
// ("api" is always the username) and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &provider.RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{StatusCode: resp.StatusCode, Message: messageOf(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// retryAfter reads the Retry-After header, defaulting to 5s when absent.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 5 * time.Second
}

// messageOf extracts the "message" field Mailgun puts in error bodies,
// falling back to the raw body.
func messageOf(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return string(body)
}

// GetDomain fetches a domain identity and maps Mailgun's state onto the
// local tri-state: active -> Success, unverified -> PendingVerification,
// anything else -> Failed.
func (c *Client) GetDomain(ctx context.Context, domain string) (*provider.Domain, error) {
	var resp domainResponse
	err := c.do(ctx, http.MethodGet, "/v4/domains/"+url.PathEscape(domain), nil, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, provider.ErrDomainNotFound
		}
		return nil, fmt.Errorf("fetching domain %s: %w", domain, err)
	}
	return resp.toDomain(), nil
}

// CreateDomain registers a new sending domain. Mailgun reports duplicates
// with a 400 whose message contains "already exists"; that is mapped to
// the ErrDomainExists sentinel so callers can fetch the existing record.
func (c *Client) CreateDomain(ctx context.Context, domain string) (*provider.Domain, error) {
	form := url.Values{}
	form.Set("name", domain)
	form.Set("web_scheme", "https")

	var resp createDomainResponse
	err := c.do(ctx, http.MethodPost, "/v4/domains", form, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) &&
			apiErr.StatusCode == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(apiErr.Message), "already exists") {
			return nil, provider.ErrDomainExists
		}
		return nil, fmt.Errorf("creating domain %s: %w", domain, err)
	}
	return resp.Domain.toDomain(), nil
}

// SendMessage submits a message through /v3/{domain}/messages with open
// and click tracking forced on and the bulk precedence header set.
func (c *Client) SendMessage(ctx context.Context, domain string, msg *provider.Message) (string, error) {
	form := url.Values{}
	form.Set("from", msg.From)
	form.Set("to", strings.Join(msg.To, ", "))
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)
	if msg.Text != "" {
		form.Set("text", msg.Text)
	}
	if msg.ReplyTo != "" {
		form.Set("h:Reply-To", msg.ReplyTo)
	}
	for k, v := range msg.Headers {
		form.Set("h:"+k, v)
	}
	// Tracking is not optional: delivery events drive the rest of the
	// platform.
	form.Set("o:tracking", "yes")
	form.Set("o:tracking-clicks", "htmlonly")
	form.Set("o:tracking-opens", "yes")
	form.Set("h:Precedence", "bulk")

	var resp sendResponse
	path := fmt.Sprintf("/v3/%s/messages", url.PathEscape(domain))
	if err := c.do(ctx, http.MethodPost, path, form, &resp); err != nil {
		return "", fmt.Errorf("sending message via %s: %w", domain, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("mailgun: no message id in response")
	}
	// Mailgun wraps ids in angle brackets; webhooks deliver them bare.
	return strings.Trim(resp.ID, "<>"), nil
}
