package webhook

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/automation"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/store"
)

type fakeStore struct {
	emails   map[string]*domain.EmailWithRelations
	projects map[uuid.UUID]*domain.Project

	statusUpdates []domain.EmailStatus
	clicks        []*domain.Click
	unsubscribed  []uuid.UUID
	triggers      []*domain.Trigger
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		emails:   make(map[string]*domain.EmailWithRelations),
		projects: make(map[uuid.UUID]*domain.Project),
	}
}

func (f *fakeStore) GetEmailByMessageID(_ context.Context, id string) (*domain.EmailWithRelations, error) {
	e, ok := f.emails[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) GetProject(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpdateEmailStatus(_ context.Context, _ uuid.UUID, status domain.EmailStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeStore) CreateClick(_ context.Context, c *domain.Click) error {
	f.clicks = append(f.clicks, c)
	return nil
}

func (f *fakeStore) UnsubscribeContact(_ context.Context, id uuid.UUID) error {
	f.unsubscribed = append(f.unsubscribed, id)
	return nil
}

func (f *fakeStore) CreateTrigger(_ context.Context, t *domain.Trigger) error {
	f.triggers = append(f.triggers, t)
	return nil
}

type fakeEngine struct {
	fired []automation.TriggerInput
}

func (f *fakeEngine) Trigger(_ context.Context, in automation.TriggerInput) error {
	f.fired = append(f.fired, in)
	return nil
}

// seed installs a delivered email for message id "msg-1" and returns the
// store, its project, and the email record.
func seed(action *domain.Action) (*fakeStore, *domain.Project, *domain.EmailWithRelations) {
	st := newFakeStore()
	project := &domain.Project{ID: uuid.New(), Name: "Acme", Verified: true}
	st.projects[project.ID] = project

	contact := domain.Contact{ID: uuid.New(), ProjectID: project.ID,
		Email: "reader@example.org", Subscribed: true}
	email := &domain.EmailWithRelations{
		Email:   domain.Email{ID: uuid.New(), MessageID: "msg-1", Status: domain.EmailPending, ContactID: contact.ID},
		Contact: contact,
		Action:  action,
	}
	if action != nil {
		email.ActionID = &action.ID
	}
	st.emails["msg-1"] = email
	return st, project, email
}

func newSyncService(st Store, engine Engine) *Service {
	s := NewService(st, engine)
	s.trigger = func(fn func()) { fn() }
	return s
}

func TestProcessStatusMapping(t *testing.T) {
	tests := []struct {
		event string
		want  domain.EmailStatus
	}{
		{"bounced", domain.EmailBounced},
		{"delivered", domain.EmailDelivered},
		{"opened", domain.EmailOpened},
		{"complained", domain.EmailComplaint},
		{"clicked", domain.EmailDelivered},
		{"unsubscribed", domain.EmailComplaint},
		{"some-future-event", domain.EmailDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			st, _, _ := seed(nil)
			svc := newSyncService(st, &fakeEngine{})

			if err := svc.Process(context.Background(), Event{Name: tt.event, MessageID: "msg-1"}); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(st.statusUpdates) != 1 || st.statusUpdates[0] != tt.want {
				t.Errorf("status updates = %v, want [%s]", st.statusUpdates, tt.want)
			}
		})
	}
}

func TestProcessBouncedUnsubscribesAndIsIdempotent(t *testing.T) {
	st, _, email := seed(nil)
	svc := newSyncService(st, &fakeEngine{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.Process(ctx, Event{Name: "bounced", MessageID: "msg-1"}); err != nil {
			t.Fatalf("Process() #%d error = %v", i, err)
		}
	}

	if len(st.unsubscribed) != 2 || st.unsubscribed[0] != email.Contact.ID {
		t.Errorf("unsubscribes = %v", st.unsubscribed)
	}
	for _, status := range st.statusUpdates {
		if status != domain.EmailBounced {
			t.Errorf("status = %s, want BOUNCED on every delivery", status)
		}
	}
}

func TestProcessClickedAppendsClick(t *testing.T) {
	st, _, email := seed(nil)
	svc := newSyncService(st, &fakeEngine{})

	ev := Event{Name: "clicked", MessageID: "msg-1", URL: "https://example.org/offer"}
	if err := svc.Process(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if err := svc.Process(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if len(st.clicks) != 2 {
		t.Fatalf("clicks = %d, want repeat clicks recorded separately", len(st.clicks))
	}
	if st.clicks[0].EmailID != email.ID || st.clicks[0].Link != ev.URL {
		t.Errorf("click = %+v", st.clicks[0])
	}
	if len(st.unsubscribed) != 0 {
		t.Error("click must not touch subscription state")
	}
}

func TestProcessUnknownMessageIsNoOp(t *testing.T) {
	st := newFakeStore()
	svc := newSyncService(st, &fakeEngine{})

	if err := svc.Process(context.Background(), Event{Name: "delivered", MessageID: "missing"}); err != nil {
		t.Fatalf("Process() error = %v, want acked no-op", err)
	}
	if len(st.statusUpdates) != 0 {
		t.Error("no writes expected for unknown message")
	}
}

func TestProcessOrphanedProjectIsNoOp(t *testing.T) {
	st, project, _ := seed(nil)
	delete(st.projects, project.ID)
	svc := newSyncService(st, &fakeEngine{})

	if err := svc.Process(context.Background(), Event{Name: "delivered", MessageID: "msg-1"}); err != nil {
		t.Fatalf("Process() error = %v, want acked no-op", err)
	}
	if len(st.statusUpdates) != 0 {
		t.Error("no writes expected for orphaned project")
	}
}

func TestProcessDeliveredFiresMatchingAutomations(t *testing.T) {
	templateID := uuid.New()
	deliveredEvent := domain.Event{ID: uuid.New(), TemplateID: templateID,
		Name: "welcome-delivered", Kind: domain.EventKindDelivered}
	openedEvent := domain.Event{ID: uuid.New(), TemplateID: templateID,
		Name: "welcome-opened", Kind: domain.EventKindOpened}
	action := &domain.Action{
		ID: uuid.New(), Name: "welcome", TemplateID: templateID,
		Template: &domain.Template{ID: templateID, Events: []domain.Event{deliveredEvent, openedEvent}},
	}

	st, _, email := seed(action)
	engine := &fakeEngine{}
	svc := newSyncService(st, engine)

	if err := svc.Process(context.Background(), Event{Name: "delivered", MessageID: "msg-1"}); err != nil {
		t.Fatal(err)
	}

	if len(st.triggers) != 1 {
		t.Fatalf("triggers = %d, want only the delivered-kind event to fire", len(st.triggers))
	}
	if st.triggers[0].EventID != deliveredEvent.ID || st.triggers[0].ContactID != email.Contact.ID {
		t.Errorf("trigger = %+v", st.triggers[0])
	}
	if len(engine.fired) != 1 || engine.fired[0].Event.ID != deliveredEvent.ID {
		t.Errorf("engine fired = %+v", engine.fired)
	}
}

func TestProcessFiresOnlyFirstMatchingEvent(t *testing.T) {
	templateID := uuid.New()
	first := domain.Event{ID: uuid.New(), TemplateID: templateID,
		Name: "welcome-delivered", Kind: domain.EventKindDelivered}
	second := domain.Event{ID: uuid.New(), TemplateID: templateID,
		Name: "welcome-delivered-again", Kind: domain.EventKindDelivered}
	action := &domain.Action{
		ID: uuid.New(), Name: "welcome", TemplateID: templateID,
		Template: &domain.Template{ID: templateID, Events: []domain.Event{first, second}},
	}

	st, _, _ := seed(action)
	engine := &fakeEngine{}
	svc := newSyncService(st, engine)

	if err := svc.Process(context.Background(), Event{Name: "delivered", MessageID: "msg-1"}); err != nil {
		t.Fatal(err)
	}

	if len(st.triggers) != 1 {
		t.Fatalf("triggers = %d, one delivery must fire at most one follow-up", len(st.triggers))
	}
	if st.triggers[0].EventID != first.ID {
		t.Errorf("trigger event = %s, want the first matching event", st.triggers[0].EventID)
	}
	if len(engine.fired) != 1 || engine.fired[0].Event.ID != first.ID {
		t.Errorf("engine fired = %+v", engine.fired)
	}
}

func TestProcessBouncedNeverFiresAutomations(t *testing.T) {
	templateID := uuid.New()
	action := &domain.Action{
		ID: uuid.New(), TemplateID: templateID,
		Template: &domain.Template{ID: templateID, Events: []domain.Event{
			{ID: uuid.New(), TemplateID: templateID, Kind: domain.EventKindDelivered},
		}},
	}
	st, _, _ := seed(action)
	engine := &fakeEngine{}
	svc := newSyncService(st, engine)

	if err := svc.Process(context.Background(), Event{Name: "bounced", MessageID: "msg-1"}); err != nil {
		t.Fatal(err)
	}
	if len(st.triggers) != 0 || len(engine.fired) != 0 {
		t.Error("bounce must not fire automations")
	}
}
