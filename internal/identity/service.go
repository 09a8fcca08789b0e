// Package identity manages sender-domain verification: attaching a
// sending address to a project, mirroring the provider's verification
// state into the project record, and keeping the project cache honest
// about it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/provider"
	"github.com/ignite/courier/internal/store"
)

// ErrDomainTaken is returned when another project already sends from the
// requested domain.
var ErrDomainTaken = errors.New("identity: domain belongs to another project")

// ErrInvalidEmail is returned for sending addresses without a domain part.
var ErrInvalidEmail = errors.New("identity: invalid sending address")

// ProjectStore is the slice of the store the identity service uses.
type ProjectStore interface {
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetProjectByDomain(ctx context.Context, dom string) (*domain.Project, error)
	UpdateProjectIdentity(ctx context.Context, id uuid.UUID, email *string, verified bool) error
	SetProjectVerified(ctx context.Context, id uuid.UUID, verified bool) error
	ListProjectsWithEmail(ctx context.Context, limit, offset int) ([]*domain.Project, error)
	GetProjectMemberIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)
}

// Invalidator is the cache surface this service needs. Identity writes
// only ever delete cache entries.
type Invalidator interface {
	InvalidateProject(ctx context.Context, p *domain.Project) error
	InvalidateUserProjects(ctx context.Context, userID uuid.UUID) error
}

// Status is the outcome of a verification check.
type Status struct {
	Status   provider.DomainStatus `json:"status"`
	Verified bool                  `json:"verified"`
	Tokens   []string              `json:"tokens,omitempty"`
}

// Service implements the identity lifecycle.
type Service struct {
	store    ProjectStore
	provider provider.Provider
	cache    Invalidator

	// pageSize and backoff are fixed in production; tests shrink them.
	pageSize int
	backoff  time.Duration
}

// Option tweaks service construction.
type Option func(*Service)

// WithPageSize overrides the reconcile page size.
func WithPageSize(n int) Option { return func(s *Service) { s.pageSize = n } }

// WithBackoff overrides the rate-limit wait.
func WithBackoff(d time.Duration) Option { return func(s *Service) { s.backoff = d } }

func NewService(st ProjectStore, p provider.Provider, c Invalidator, opts ...Option) *Service {
	s := &Service{
		store:    st,
		provider: p,
		cache:    c,
		pageSize: 99,
		backoff:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckStatus reports the current verification state of a project's
// sending domain. A project without a sending address short-circuits to
// unverified without touching the provider. When the provider reports the
// domain verified and the project record disagrees, the record is updated
// and its cache entries dropped; the flag is never lowered here, that is
// ReconcileAll's job.
func (s *Service) CheckStatus(ctx context.Context, projectID uuid.UUID) (*Status, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	dom := p.SendingDomain()
	if dom == "" {
		return &Status{Status: provider.StatusFailed, Verified: false}, nil
	}

	d, err := s.provider.GetDomain(ctx, dom)
	if errors.Is(err, provider.ErrDomainNotFound) {
		// Registered here but unknown upstream. Report failure so the
		// dashboard prompts a re-attach.
		return &Status{Status: provider.StatusFailed, Verified: p.Verified}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking domain %s: %w", dom, err)
	}

	if d.Status == provider.StatusSuccess && !p.Verified {
		if err := s.store.SetProjectVerified(ctx, p.ID, true); err != nil {
			return nil, fmt.Errorf("persisting verification: %w", err)
		}
		p.Verified = true
		s.invalidateProject(ctx, p)
	}

	return &Status{
		Status:   d.Status,
		Verified: p.Verified,
		Tokens:   d.DKIMTokens,
	}, nil
}

// Attach sets a project's sending address and registers its domain with
// the provider. The domain must not already back another project. A
// domain the provider already knows is adopted rather than treated as an
// error, which makes Attach safe to repeat.
func (s *Service) Attach(ctx context.Context, projectID uuid.UUID, email string, requesterID uuid.UUID) (*Status, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	dom := domain.DomainOf(email)

	existing, err := s.store.GetProjectByDomain(ctx, dom)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != p.ID {
		return nil, ErrDomainTaken
	}

	d, err := s.provider.CreateDomain(ctx, dom)
	if errors.Is(err, provider.ErrDomainExists) {
		d, err = s.provider.GetDomain(ctx, dom)
	}
	if err != nil {
		return nil, fmt.Errorf("registering domain %s: %w", dom, err)
	}

	if err := s.store.UpdateProjectIdentity(ctx, p.ID, &email, false); err != nil {
		return nil, fmt.Errorf("persisting identity: %w", err)
	}
	s.invalidateProject(ctx, p)
	s.invalidateUser(ctx, requesterID)

	return &Status{Status: d.Status, Verified: false, Tokens: d.DKIMTokens}, nil
}

// Reset detaches a project's sending identity. The provider-side domain
// registration is left in place so a later re-attach adopts it.
func (s *Service) Reset(ctx context.Context, projectID, requesterID uuid.UUID) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateProjectIdentity(ctx, p.ID, nil, false); err != nil {
		return fmt.Errorf("clearing identity: %w", err)
	}
	s.invalidateProject(ctx, p)
	s.invalidateUser(ctx, requesterID)
	return nil
}

// ReconcileAll walks every project with a sending address in fixed-size
// pages and aligns each record's verified flag with the provider's
// current answer, in both directions. Failures are isolated per project
// and the batch always runs to completion; a provider rate limit pauses
// the whole batch once for the configured backoff.
func (s *Service) ReconcileAll(ctx context.Context) error {
	offset := 0
	for {
		page, err := s.store.ListProjectsWithEmail(ctx, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		for _, p := range page {
			err := s.reconcileOne(ctx, p)
			if wait, limited := provider.IsRateLimited(err); limited {
				// Rate limits get exactly one retry after a fixed wait.
				logger.Warn("provider rate limit during reconcile",
					"project_id", p.ID.String(),
					"retry_after", wait.String(),
				)
				if serr := sleepCtx(ctx, s.backoff); serr != nil {
					return serr
				}
				err = s.reconcileOne(ctx, p)
			}
			if err != nil {
				logger.Error("reconcile failed for project",
					"project_id", p.ID.String(),
					"error", err.Error(),
				)
			}
		}
		if len(page) < s.pageSize {
			return ctx.Err()
		}
		offset += len(page)
	}
}

func (s *Service) reconcileOne(ctx context.Context, p *domain.Project) error {
	dom := p.SendingDomain()
	if dom == "" {
		return nil
	}

	d, err := s.provider.GetDomain(ctx, dom)
	if errors.Is(err, provider.ErrDomainNotFound) {
		d, err = s.provider.CreateDomain(ctx, dom)
	}
	if err != nil {
		return err
	}

	if d.Status == provider.StatusFailed {
		// One re-registration attempt; adopting an existing registration
		// keeps this idempotent.
		if redone, rerr := s.provider.CreateDomain(ctx, dom); rerr == nil {
			d = redone
		} else if !errors.Is(rerr, provider.ErrDomainExists) {
			return rerr
		}
	}

	verified := d.Status == provider.StatusSuccess
	if verified == p.Verified {
		return nil
	}
	if err := s.store.SetProjectVerified(ctx, p.ID, verified); err != nil {
		return err
	}
	p.Verified = verified
	s.invalidateProject(ctx, p)

	// Dashboard project listings embed the verified flag, so members'
	// cached lists go stale too.
	members, err := s.store.GetProjectMemberIDs(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, userID := range members {
		s.invalidateUser(ctx, userID)
	}
	return nil
}

// invalidateProject drops the project's cache entries. Cache errors are
// logged, never surfaced: the entries carry a TTL, so a failed delete
// degrades to bounded staleness rather than a failed request.
func (s *Service) invalidateProject(ctx context.Context, p *domain.Project) {
	if err := s.cache.InvalidateProject(ctx, p); err != nil {
		logger.Warn("project cache invalidation failed",
			"project_id", p.ID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	if err := s.cache.InvalidateUserProjects(ctx, userID); err != nil {
		logger.Warn("user cache invalidation failed",
			"user_id", userID.String(),
			"error", err.Error(),
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
