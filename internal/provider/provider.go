// Package provider defines the transactional email provider abstraction:
// domain identity registration/lookup and message sending. Implementations
// live in the subpackages mailgun, ses, and mock; services depend only on
// the Provider interface and the types here.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DomainStatus is the local tri-state a provider's domain verification
// states are mapped onto.
type DomainStatus string

const (
	StatusSuccess DomainStatus = "Success"
	StatusPending DomainStatus = "PendingVerification"
	StatusFailed  DomainStatus = "Failed"
)

// Domain is a sending-domain identity as the provider reports it.
// DKIMTokens are the DNS record values (selectors) the tenant must publish
// to pass verification.
type Domain struct {
	Name       string
	Status     DomainStatus
	DKIMTokens []string
}

// Message is a fully rendered outbound email. Tracking (opens, clicks,
// bulk precedence) is always enabled by implementations; callers cannot
// opt out.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	Headers map[string]string
}

// Provider is the third-party email API surface this platform needs.
type Provider interface {
	// GetDomain fetches the identity for domain. Returns ErrDomainNotFound
	// if the provider has never seen it.
	GetDomain(ctx context.Context, domain string) (*Domain, error)

	// CreateDomain registers domain with the provider. Returns
	// ErrDomainExists if it is already registered.
	CreateDomain(ctx context.Context, domain string) (*Domain, error)

	// SendMessage sends msg from the given sending domain and returns the
	// provider's message id, the correlation key for delivery events.
	SendMessage(ctx context.Context, domain string, msg *Message) (string, error)
}

// Sentinel errors implementations translate provider responses into.
var (
	ErrDomainExists   = errors.New("provider: domain already exists")
	ErrDomainNotFound = errors.New("provider: domain not found")
)

// RateLimitError reports that the provider rejected a call with a rate
// limit. Call sites decide the retry policy; nothing in this package
// retries rate-limited calls.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider: rate limited (retry after %s)", e.RetryAfter)
}

// IsRateLimited reports whether err carries a rate-limit signal and, if
// so, the suggested wait.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
