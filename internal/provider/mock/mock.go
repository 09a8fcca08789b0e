// Package mock is an in-memory provider used when no real provider is
// configured. Domains verify instantly and sends return synthetic
// message ids, which keeps local development and tests off the network.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/provider"
)

// Client is an in-memory provider. Safe for concurrent use.
type Client struct {
	mu      sync.Mutex
	domains map[string]*provider.Domain
	sent    []SentMessage
}

// SentMessage records one SendMessage call for test assertions.
type SentMessage struct {
	Domain  string
	Message provider.Message
}

func New() *Client {
	return &Client{domains: make(map[string]*provider.Domain)}
}

func (c *Client) GetDomain(_ context.Context, domain string) (*provider.Domain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.domains[domain]
	if !ok {
		return nil, provider.ErrDomainNotFound
	}
	cp := *d
	return &cp, nil
}

func (c *Client) CreateDomain(_ context.Context, domain string) (*provider.Domain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.domains[domain]; ok {
		return nil, provider.ErrDomainExists
	}
	d := &provider.Domain{
		Name:       domain,
		Status:     provider.StatusSuccess,
		DKIMTokens: []string{"mock-dkim-token"},
	}
	c.domains[domain] = d
	cp := *d
	return &cp, nil
}

func (c *Client) SendMessage(_ context.Context, domain string, msg *provider.Message) (string, error) {
	c.mu.Lock()
	c.sent = append(c.sent, SentMessage{Domain: domain, Message: *msg})
	c.mu.Unlock()

	id := fmt.Sprintf("mock-%d", time.Now().UnixNano())
	logger.Info("mock provider send",
		"domain", domain,
		"recipient", first(msg.To),
		"message_id", id,
	)
	return id, nil
}

// Sent returns a copy of every message sent so far.
func (c *Client) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// SetDomain seeds a domain with an explicit status.
func (c *Client) SetDomain(domain string, status provider.DomainStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domains[domain] = &provider.Domain{Name: domain, Status: status}
}

func first(to []string) string {
	if len(to) == 0 {
		return ""
	}
	return to[0]
}
