package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func projectRows(p *domain.Project) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "verified", "secret", "public", "created_at", "updated_at",
	}).AddRow(p.ID, p.Name, p.Email, p.Verified, p.Secret, p.Public, p.CreatedAt, p.UpdatedAt)
}

func TestGetProject(t *testing.T) {
	s, mock := newTestStore(t)
	email := "hello@acme.com"
	want := &domain.Project{
		ID: uuid.New(), Name: "Acme", Email: &email, Verified: true,
		Secret: "sk_1", Public: "pk_1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, verified, secret, public, created_at, updated_at FROM projects WHERE id = $1`)).
		WithArgs(want.ID).
		WillReturnRows(projectRows(want))

	got, err := s.GetProject(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != "Acme" || !got.Verified || *got.Email != email {
		t.Errorf("GetProject() = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM projects WHERE id`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetProject(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestListProjectsWithEmail(t *testing.T) {
	s, mock := newTestStore(t)
	email := "a@one.com"
	rows := sqlmock.NewRows([]string{
		"id", "name", "email", "verified", "secret", "public", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), "One", &email, false, "sk_1", "pk_1", time.Now(), time.Now()).
		AddRow(uuid.New(), "Two", &email, true, "sk_2", "pk_2", time.Now(), time.Now())

	mock.ExpectQuery(`SELECT .+ FROM projects\s+WHERE email IS NOT NULL ORDER BY created_at, id LIMIT \$1 OFFSET \$2`).
		WithArgs(99, 0).
		WillReturnRows(rows)

	projects, err := s.ListProjectsWithEmail(context.Background(), 99, 0)
	if err != nil {
		t.Fatalf("ListProjectsWithEmail() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
}

func TestSetProjectVerified(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE projects SET verified = \$2, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(id, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetProjectVerified(context.Background(), id, true); err != nil {
		t.Fatalf("SetProjectVerified() error = %v", err)
	}
}

func TestUnsubscribeContact(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE contacts SET subscribed = false`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UnsubscribeContact(context.Background(), id); err != nil {
		t.Fatalf("UnsubscribeContact() error = %v", err)
	}
}

func TestGetEmailByMessageID(t *testing.T) {
	s, mock := newTestStore(t)

	emailID := uuid.New()
	contactID := uuid.New()
	projectID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "message_id", "status", "subject", "contact_id", "action_id", "campaign_id",
		"created_at", "updated_at",
		"c_id", "c_project_id", "c_email", "c_subscribed", "c_created_at", "c_updated_at",
	}).AddRow(
		emailID, "msg-1", domain.EmailPending, "Welcome", contactID, nil, nil, now, now,
		contactID, projectID, "reader@example.org", true, now, now,
	)

	mock.ExpectQuery(`SELECT e\.id, .+ FROM emails e\s+JOIN contacts c ON c\.id = e\.contact_id\s+WHERE e\.message_id = \$1`).
		WithArgs("msg-1").
		WillReturnRows(rows)

	got, err := s.GetEmailByMessageID(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("GetEmailByMessageID() error = %v", err)
	}
	if got.Status != domain.EmailPending {
		t.Errorf("status = %s", got.Status)
	}
	if got.Contact.Email != "reader@example.org" || got.Contact.ProjectID != projectID {
		t.Errorf("contact = %+v", got.Contact)
	}
	if got.Action != nil || got.Campaign != nil {
		t.Error("unlinked email should have nil action and campaign")
	}
}

func TestGetEmailByMessageIDUnknown(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT e\.id, .+ FROM emails e`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetEmailByMessageID(context.Background(), "unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateClick(t *testing.T) {
	s, mock := newTestStore(t)
	emailID := uuid.New()

	mock.ExpectExec(`INSERT INTO clicks`).
		WithArgs(sqlmock.AnyArg(), emailID, "https://example.org/offer", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	click := &domain.Click{EmailID: emailID, Link: "https://example.org/offer"}
	if err := s.CreateClick(context.Background(), click); err != nil {
		t.Fatalf("CreateClick() error = %v", err)
	}
	if click.ID == uuid.Nil {
		t.Error("click id not assigned")
	}
}
