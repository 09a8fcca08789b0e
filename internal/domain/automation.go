package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the delivery milestones an automation can react to.
// Matching is exact on this field, never on event names.
type EventKind string

const (
	EventKindDelivered EventKind = "delivered"
	EventKindOpened    EventKind = "opened"
)

// Template is reusable email content owned by a project. Its events are
// the milestones automations may subscribe to.
type Template struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	Events    []Event   `json:"events,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event is a named delivery milestone on a template.
type Event struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TemplateID uuid.UUID `json:"template_id" db:"template_id"`
	Name       string    `json:"name" db:"name"`
	Kind       EventKind `json:"kind" db:"kind"`
}

// Action is an automation rule: when a contact satisfies one of the
// template's events, the action's follow-up template is sent.
type Action struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProjectID  uuid.UUID `json:"project_id" db:"project_id"`
	Name       string    `json:"name" db:"name"`
	TemplateID uuid.UUID `json:"template_id" db:"template_id"`
	Template   *Template `json:"template,omitempty"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Trigger records a contact satisfying an action's event condition.
type Trigger struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ContactID uuid.UUID `json:"contact_id" db:"contact_id"`
	EventID   uuid.UUID `json:"event_id" db:"event_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Campaign is a one-off bulk send. Only the link from an email back to its
// campaign matters to the delivery-event pipeline.
type Campaign struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// EmailWithRelations is an email plus the rows the webhook pipeline needs
// in one round trip: the contact, the owning action (with its template and
// events), and the campaign, when linked.
type EmailWithRelations struct {
	Email
	Contact  Contact   `json:"contact"`
	Action   *Action   `json:"action,omitempty"`
	Campaign *Campaign `json:"campaign,omitempty"`
}
