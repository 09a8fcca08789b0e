package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/compose"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/identity"
	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/webhook"
)

// IdentityService is the identity lifecycle surface the handlers call.
type IdentityService interface {
	CheckStatus(ctx context.Context, projectID uuid.UUID) (*identity.Status, error)
	Attach(ctx context.Context, projectID uuid.UUID, email string, requesterID uuid.UUID) (*identity.Status, error)
	Reset(ctx context.Context, projectID, requesterID uuid.UUID) error
	ReconcileAll(ctx context.Context) error
}

// WebhookService processes inbound delivery events.
type WebhookService interface {
	Process(ctx context.Context, ev webhook.Event) error
}

// Store is the storage surface the handlers use directly.
type Store interface {
	GetProjectBySecret(ctx context.Context, secret string) (*domain.Project, error)
	GetContactByEmail(ctx context.Context, projectID uuid.UUID, email string) (*domain.Contact, error)
	CreateContact(ctx context.Context, c *domain.Contact) error
	CreateEmail(ctx context.Context, e *domain.Email) error
}

// ProjectCache is the read-through cache used by project-key auth.
type ProjectCache interface {
	GetProject(ctx context.Context, key string) (*domain.Project, error)
	SetProject(ctx context.Context, p *domain.Project) error
}

// MessageSender performs the provider send for /v1/send. Satisfied by
// *compose.Sender.
type MessageSender interface {
	Send(ctx context.Context, req compose.SendRequest) string
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	identity IdentityService
	webhook  WebhookService
	store    Store
	cache    ProjectCache
	sender   MessageSender
}

// NewHandlers wires the handler set.
func NewHandlers(id IdentityService, wh WebhookService, st Store, c ProjectCache, sender MessageSender) *Handlers {
	return &Handlers{
		identity: id,
		webhook:  wh,
		store:    st,
		cache:    c,
		sender:   sender,
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}
