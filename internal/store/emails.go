package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

// CreateEmail inserts a sent-email record.
func (s *Store) CreateEmail(ctx context.Context, e *domain.Email) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	if e.Status == "" {
		e.Status = domain.EmailPending
	}

	query := `INSERT INTO emails (id, message_id, status, subject, contact_id, action_id, campaign_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query, e.ID, e.MessageID, e.Status, e.Subject,
		e.ContactID, e.ActionID, e.CampaignID, e.CreatedAt, e.UpdatedAt)
	return err
}

// GetEmailByMessageID retrieves an email by its provider message id along
// with the contact, action (template and events included), and campaign it
// links to. This is the webhook pipeline's single lookup per event.
func (s *Store) GetEmailByMessageID(ctx context.Context, messageID string) (*domain.EmailWithRelations, error) {
	query := `SELECT e.id, e.message_id, e.status, e.subject, e.contact_id, e.action_id, e.campaign_id,
			e.created_at, e.updated_at,
			c.id, c.project_id, c.email, c.subscribed, c.created_at, c.updated_at
		FROM emails e
		JOIN contacts c ON c.id = e.contact_id
		WHERE e.message_id = $1`

	out := &domain.EmailWithRelations{}
	err := s.db.QueryRowContext(ctx, query, messageID).Scan(
		&out.ID, &out.MessageID, &out.Status, &out.Subject, &out.ContactID,
		&out.ActionID, &out.CampaignID, &out.CreatedAt, &out.UpdatedAt,
		&out.Contact.ID, &out.Contact.ProjectID, &out.Contact.Email,
		&out.Contact.Subscribed, &out.Contact.CreatedAt, &out.Contact.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if out.ActionID != nil {
		action, err := s.GetAction(ctx, *out.ActionID)
		if err != nil && err != ErrNotFound {
			return nil, err
		}
		out.Action = action
	}
	if out.CampaignID != nil {
		campaign, err := s.GetCampaign(ctx, *out.CampaignID)
		if err != nil && err != ErrNotFound {
			return nil, err
		}
		out.Campaign = campaign
	}
	return out, nil
}

// UpdateEmailStatus records the latest delivery status. Last write wins;
// provider events arrive unordered.
func (s *Store) UpdateEmailStatus(ctx context.Context, id uuid.UUID, status domain.EmailStatus) error {
	query := `UPDATE emails SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateClick appends a click record. Clicks are never deduplicated;
// repeat clicks on the same link are distinct rows.
func (s *Store) CreateClick(ctx context.Context, c *domain.Click) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()

	query := `INSERT INTO clicks (id, email_id, link, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.EmailID, c.Link, c.CreatedAt)
	return err
}

// ListClicksByEmail returns a message's click history, newest first.
func (s *Store) ListClicksByEmail(ctx context.Context, emailID uuid.UUID) ([]*domain.Click, error) {
	query := `SELECT id, email_id, link, created_at FROM clicks
		WHERE email_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []*domain.Click
	for rows.Next() {
		c := &domain.Click{}
		if err := rows.Scan(&c.ID, &c.EmailID, &c.Link, &c.CreatedAt); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}
