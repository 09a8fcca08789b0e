package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

const contactColumns = `id, project_id, email, subscribed, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := row.Scan(&c.ID, &c.ProjectID, &c.Email, &c.Subscribed, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateContact inserts a contact, normalizing the address. Re-inserting
// an existing address is a no-op that returns the stored row, so send
// paths can upsert blindly.
func (s *Store) CreateContact(ctx context.Context, c *domain.Contact) error {
	c.ID = uuid.New()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	query := `INSERT INTO contacts (id, project_id, email, subscribed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id, email) DO UPDATE SET updated_at = contacts.updated_at
		RETURNING ` + contactColumns

	stored, err := scanContact(s.db.QueryRowContext(ctx, query,
		c.ID, c.ProjectID, c.Email, c.Subscribed, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

// GetContact retrieves a contact by ID.
func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return scanContact(s.db.QueryRowContext(ctx, query, id))
}

// GetContactByEmail retrieves a project's contact by address.
func (s *Store) GetContactByEmail(ctx context.Context, projectID uuid.UUID, email string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE project_id = $1 AND email = $2`
	return scanContact(s.db.QueryRowContext(ctx, query, projectID,
		strings.ToLower(strings.TrimSpace(email))))
}

// UnsubscribeContact flips subscribed to false. The transition is one-way;
// there is no corresponding resubscribe in the event pipeline.
func (s *Store) UnsubscribeContact(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE contacts SET subscribed = false, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
