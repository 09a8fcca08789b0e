package automation

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/compose"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/provider/mock"
)

type fakeStore struct {
	actions   map[uuid.UUID][]*domain.Action
	templates map[uuid.UUID]*domain.Template
	emails    []*domain.Email
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		actions:   make(map[uuid.UUID][]*domain.Action),
		templates: make(map[uuid.UUID]*domain.Template),
	}
}

func (f *fakeStore) ListActionsByEvent(_ context.Context, eventID uuid.UUID) ([]*domain.Action, error) {
	return f.actions[eventID], nil
}

func (f *fakeStore) GetTemplate(_ context.Context, id uuid.UUID) (*domain.Template, error) {
	return f.templates[id], nil
}

func (f *fakeStore) CreateEmail(_ context.Context, e *domain.Email) error {
	e.ID = uuid.New()
	f.emails = append(f.emails, e)
	return nil
}

func fixtures() (*fakeStore, domain.Event, TriggerInput) {
	st := newFakeStore()

	followUpID := uuid.New()
	st.templates[followUpID] = &domain.Template{
		ID:      followUpID,
		Subject: "Thanks {{email}}",
		Body:    "Glad you are here, {{email ?? friend}}.",
	}

	event := domain.Event{ID: uuid.New(), Name: "welcome-delivered", Kind: domain.EventKindDelivered}
	st.actions[event.ID] = []*domain.Action{
		{ID: uuid.New(), Name: "send-thanks", TemplateID: followUpID},
	}

	email := "hello@acme.com"
	in := TriggerInput{
		Event: event,
		Contact: domain.Contact{ID: uuid.New(), Email: "reader@example.org",
			Subscribed: true},
		Project: domain.Project{ID: uuid.New(), Name: "Acme", Email: &email, Verified: true},
	}
	return st, event, in
}

func TestTriggerSendsFollowUp(t *testing.T) {
	st, _, in := fixtures()
	prov := mock.New()
	engine := NewEngine(st, compose.NewSender(prov))

	if err := engine.Trigger(context.Background(), in); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	sent := prov.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	msg := sent[0].Message
	if msg.Subject != "Thanks reader@example.org" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.To[0] != in.Contact.Email {
		t.Errorf("to = %v", msg.To)
	}
	if sent[0].Domain != "acme.com" {
		t.Errorf("domain = %q", sent[0].Domain)
	}
	if !strings.Contains(msg.HTML, "Glad you are here, reader@example.org.") {
		t.Errorf("html = %q", msg.HTML)
	}

	if len(st.emails) != 1 {
		t.Fatalf("emails recorded = %d, want 1", len(st.emails))
	}
	rec := st.emails[0]
	if rec.ActionID == nil || *rec.ActionID != st.actions[in.Event.ID][0].ID {
		t.Errorf("recorded action id = %v", rec.ActionID)
	}
	if rec.Status != domain.EmailPending {
		t.Errorf("recorded status = %s, want PENDING", rec.Status)
	}
	if !strings.HasPrefix(rec.MessageID, "mock-") {
		t.Errorf("message id = %q", rec.MessageID)
	}
}

func TestTriggerSkipsUnsubscribedContact(t *testing.T) {
	st, _, in := fixtures()
	in.Contact.Subscribed = false
	prov := mock.New()
	engine := NewEngine(st, compose.NewSender(prov))

	if err := engine.Trigger(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if len(prov.Sent()) != 0 || len(st.emails) != 0 {
		t.Error("unsubscribed contact must not receive automations")
	}
}

func TestTriggerSkipsUnverifiedProject(t *testing.T) {
	st, _, in := fixtures()
	in.Project.Verified = false
	prov := mock.New()
	engine := NewEngine(st, compose.NewSender(prov))

	if err := engine.Trigger(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if len(prov.Sent()) != 0 {
		t.Error("unverified project must not send")
	}
}
