package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

// GetTemplate retrieves a template with its events.
func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	query := `SELECT id, project_id, subject, body, created_at FROM templates WHERE id = $1`

	t := &domain.Template{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.ProjectID, &t.Subject, &t.Body, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	events, err := s.listEventsByTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Events = events
	return t, nil
}

func (s *Store) listEventsByTemplate(ctx context.Context, templateID uuid.UUID) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, template_id, name, kind FROM events WHERE template_id = $1`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TemplateID, &e.Name, &e.Kind); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetAction retrieves an action with its follow-up template (events
// included) eager-loaded.
func (s *Store) GetAction(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	query := `SELECT id, project_id, name, template_id, created_at FROM actions WHERE id = $1`

	a := &domain.Action{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.ProjectID, &a.Name, &a.TemplateID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tmpl, err := s.GetTemplate(ctx, a.TemplateID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	a.Template = tmpl
	return a, nil
}

// ListActionsByEvent returns the actions chained to an event.
func (s *Store) ListActionsByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Action, error) {
	query := `SELECT a.id, a.project_id, a.name, a.template_id, a.created_at
		FROM actions a
		JOIN action_events ae ON ae.action_id = a.id
		WHERE ae.event_id = $1`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		a := &domain.Action{}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &a.TemplateID, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// CreateTrigger records a contact satisfying an event.
func (s *Store) CreateTrigger(ctx context.Context, t *domain.Trigger) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()

	query := `INSERT INTO triggers (id, contact_id, event_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, t.ID, t.ContactID, t.EventID, t.CreatedAt)
	return err
}

// GetCampaign retrieves a campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT id, project_id, subject, body, created_at FROM campaigns WHERE id = $1`

	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ProjectID, &c.Subject, &c.Body, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}
