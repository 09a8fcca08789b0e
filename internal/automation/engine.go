// Package automation runs event-chained follow-ups: when a contact
// satisfies a template event, every action listening on that event sends
// its own template to the contact.
package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/compose"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/logger"
)

// Store is the persistence surface the engine needs.
type Store interface {
	ListActionsByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Action, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error)
	CreateEmail(ctx context.Context, e *domain.Email) error
}

// TriggerInput carries everything a fired event knows about its context.
type TriggerInput struct {
	Event   domain.Event
	Contact domain.Contact
	Project domain.Project
}

// Engine dispatches actions for fired events.
type Engine struct {
	store  Store
	sender *compose.Sender
}

func NewEngine(store Store, sender *compose.Sender) *Engine {
	return &Engine{store: store, sender: sender}
}

// Trigger sends the follow-up template of every action chained to the
// event. Unsubscribed contacts and projects without a sending identity
// are skipped. Individual action failures are logged and do not stop the
// remaining actions; callers treat the whole invocation as
// fire-and-forget.
func (e *Engine) Trigger(ctx context.Context, in TriggerInput) error {
	if !in.Contact.Subscribed {
		return nil
	}
	from := in.Project.Email
	if from == nil || !in.Project.Verified {
		logger.Debug("skipping automation for project without verified identity",
			"project_id", in.Project.ID.String(),
			"event", in.Event.Name,
		)
		return nil
	}

	actions, err := e.store.ListActionsByEvent(ctx, in.Event.ID)
	if err != nil {
		return fmt.Errorf("listing actions for event %s: %w", in.Event.ID, err)
	}

	for _, action := range actions {
		if err := e.runAction(ctx, action, in, *from); err != nil {
			logger.Error("automation action failed",
				"action_id", action.ID.String(),
				"event", in.Event.Name,
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (e *Engine) runAction(ctx context.Context, action *domain.Action, in TriggerInput, from string) error {
	tmpl := action.Template
	if tmpl == nil {
		var err error
		tmpl, err = e.store.GetTemplate(ctx, action.TemplateID)
		if err != nil {
			return fmt.Errorf("loading template: %w", err)
		}
		if tmpl == nil {
			return fmt.Errorf("template %s missing", action.TemplateID)
		}
	}

	vars := map[string]any{
		"email":   in.Contact.Email,
		"project": in.Project.Name,
		"event":   in.Event.Name,
	}
	subject, body := compose.Format(tmpl.Subject, tmpl.Body, vars)
	html := compose.Compile(body, in.Project.Name, isHTMLDocument(body))

	messageID := e.sender.Send(ctx, compose.SendRequest{
		Domain:  in.Project.SendingDomain(),
		From:    fmt.Sprintf("%s <%s>", in.Project.Name, from),
		To:      []string{in.Contact.Email},
		Subject: subject,
		HTML:    html,
	})

	actionID := action.ID
	email := &domain.Email{
		MessageID: messageID,
		Status:    domain.EmailPending,
		Subject:   subject,
		ContactID: in.Contact.ID,
		ActionID:  &actionID,
	}
	if err := e.store.CreateEmail(ctx, email); err != nil {
		return fmt.Errorf("recording email: %w", err)
	}
	return nil
}

// isHTMLDocument reports whether body is a complete HTML template that
// should bypass the standard layout.
func isHTMLDocument(body string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(body))
	return strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html")
}
