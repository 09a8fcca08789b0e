package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

const projectColumns = `id, name, email, verified, secret, public, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*domain.Project, error) {
	p := &domain.Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Verified, &p.Secret, &p.Public,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// newKey generates an API key with the given prefix.
func newKey(prefix string) string {
	buf := make([]byte, 24)
	rand.Read(buf)
	return prefix + hex.EncodeToString(buf)
}

// CreateProject inserts a new project with freshly generated API keys and
// links the owning user as a member.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project, ownerID uuid.UUID) error {
	p.ID = uuid.New()
	p.Secret = newKey("sk_")
	p.Public = newKey("pk_")
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO projects (id, name, email, verified, secret, public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.Email, p.Verified,
		p.Secret, p.Public, p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}

	memberQuery := `INSERT INTO project_members (project_id, user_id, created_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, memberQuery, p.ID, ownerID, p.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(s.db.QueryRowContext(ctx, query, id))
}

// GetProjectBySecret retrieves a project by its secret API key.
func (s *Store) GetProjectBySecret(ctx context.Context, secret string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE secret = $1`
	return scanProject(s.db.QueryRowContext(ctx, query, secret))
}

// GetProjectByPublic retrieves a project by its public API key.
func (s *Store) GetProjectByPublic(ctx context.Context, public string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE public = $1`
	return scanProject(s.db.QueryRowContext(ctx, query, public))
}

// GetProjectByDomain retrieves the project whose sending address belongs
// to domain. Used for the domain-uniqueness check when attaching an
// identity.
func (s *Store) GetProjectByDomain(ctx context.Context, dom string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE email IS NOT NULL AND lower(split_part(email, '@', 2)) = lower($1)
		LIMIT 1`
	return scanProject(s.db.QueryRowContext(ctx, query, dom))
}

// UpdateProjectIdentity persists the sending address and verification flag.
func (s *Store) UpdateProjectIdentity(ctx context.Context, id uuid.UUID, email *string, verified bool) error {
	query := `UPDATE projects SET email = $2, verified = $3, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, email, verified)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProjectVerified flips only the verification flag.
func (s *Store) SetProjectVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE projects SET verified = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, verified)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProjectsWithEmail returns one page of projects that have a sending
// address attached, ordered by creation time for stable pagination.
func (s *Store) ListProjectsWithEmail(ctx context.Context, limit, offset int) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE email IS NOT NULL ORDER BY created_at, id LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p := &domain.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Verified, &p.Secret,
			&p.Public, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CountProjectsWithEmail returns how many projects have a sending address.
func (s *Store) CountProjectsWithEmail(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE email IS NOT NULL`).Scan(&count)
	return count, err
}

// GetProjectMemberIDs returns the user ids with access to a project, for
// invalidating their cached project listings.
func (s *Store) GetProjectMemberIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM project_members WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
