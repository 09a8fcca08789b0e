// Package webhook processes inbound delivery events from the email
// provider and fans their effects out to email status, click history,
// subscription state, and automations.
package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/automation"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/store"
)

// Event is one normalized delivery event from the provider.
type Event struct {
	Name      string // provider event name (delivered, bounced, ...)
	MessageID string
	Recipient string
	URL       string // set for click events
}

// statusFor maps provider event names onto email statuses. Unknown events
// deliberately degrade to DELIVERED: providers add event types over time
// and an unmapped one must never poison the pipeline.
func statusFor(event string) domain.EmailStatus {
	switch event {
	case "bounced", "failed":
		return domain.EmailBounced
	case "delivered":
		return domain.EmailDelivered
	case "opened":
		return domain.EmailOpened
	case "complained", "unsubscribed":
		return domain.EmailComplaint
	case "clicked":
		return domain.EmailDelivered
	default:
		return domain.EmailDelivered
	}
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetEmailByMessageID(ctx context.Context, messageID string) (*domain.EmailWithRelations, error)
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	UpdateEmailStatus(ctx context.Context, id uuid.UUID, status domain.EmailStatus) error
	CreateClick(ctx context.Context, c *domain.Click) error
	UnsubscribeContact(ctx context.Context, id uuid.UUID) error
	CreateTrigger(ctx context.Context, t *domain.Trigger) error
}

// Engine fires automations for delivery milestones. Satisfied by
// *automation.Engine.
type Engine interface {
	Trigger(ctx context.Context, in automation.TriggerInput) error
}

// Service applies delivery events. Every path through Process that is not
// a hard storage failure succeeds: events for unknown messages or orphaned
// projects are acknowledged and dropped, because the provider retries
// non-2xx responses forever and these events can never become
// processable.
type Service struct {
	store  Store
	engine Engine

	// trigger runs the engine invocation; production wiring makes it a
	// goroutine, tests make it synchronous.
	trigger func(fn func())
}

func NewService(st Store, engine Engine) *Service {
	return &Service{
		store:   st,
		engine:  engine,
		trigger: func(fn func()) { go fn() },
	}
}

// Process applies one delivery event.
func (s *Service) Process(ctx context.Context, ev Event) error {
	status := statusFor(ev.Name)

	email, err := s.store.GetEmailByMessageID(ctx, ev.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Debug("event for unknown message, dropping",
			"event", ev.Name,
			"message_id", ev.MessageID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up message %s: %w", ev.MessageID, err)
	}

	project, err := s.store.GetProject(ctx, email.Contact.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("event for orphaned project, dropping",
			"event", ev.Name,
			"project_id", email.Contact.ProjectID.String(),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up project: %w", err)
	}

	if ev.Name == "clicked" && ev.URL != "" {
		click := &domain.Click{EmailID: email.ID, Link: ev.URL}
		if err := s.store.CreateClick(ctx, click); err != nil {
			return fmt.Errorf("recording click: %w", err)
		}
	}

	switch ev.Name {
	case "bounced", "failed", "complained", "unsubscribed":
		if err := s.store.UnsubscribeContact(ctx, email.Contact.ID); err != nil {
			return fmt.Errorf("unsubscribing contact: %w", err)
		}
	}

	if err := s.store.UpdateEmailStatus(ctx, email.ID, status); err != nil {
		return fmt.Errorf("updating email status: %w", err)
	}

	s.fireAutomations(ctx, ev, email, project)
	return nil
}

// fireAutomations creates a trigger for the first action event matching
// this delivery milestone and hands it to the engine without waiting.
// One delivery milestone fires at most one follow-up, even when a
// template declares several events of the same kind.
func (s *Service) fireAutomations(ctx context.Context, ev Event, email *domain.EmailWithRelations, project *domain.Project) {
	if email.Action == nil || email.Action.Template == nil {
		return
	}

	var kind domain.EventKind
	switch ev.Name {
	case "delivered":
		kind = domain.EventKindDelivered
	case "opened":
		kind = domain.EventKindOpened
	default:
		return
	}

	for _, event := range email.Action.Template.Events {
		if event.Kind != kind {
			continue
		}
		trigger := &domain.Trigger{ContactID: email.Contact.ID, EventID: event.ID}
		if err := s.store.CreateTrigger(ctx, trigger); err != nil {
			logger.Error("recording trigger failed",
				"event_id", event.ID.String(),
				"error", err.Error(),
			)
			return
		}

		event := event
		contact := email.Contact
		proj := *project
		s.trigger(func() {
			// Detached from the request context: the webhook response
			// must not wait on follow-up sends.
			if err := s.engine.Trigger(context.Background(), automation.TriggerInput{
				Event:   event,
				Contact: contact,
				Project: proj,
			}); err != nil {
				logger.Error("automation trigger failed",
					"event_id", event.ID.String(),
					"error", err.Error(),
				)
			}
		})
		return
	}
}
