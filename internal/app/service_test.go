package app_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/neomorfeo/secretsanta/internal/adapter/fsm"
	"github.com/neomorfeo/secretsanta/internal/app"
	"github.com/neomorfeo/secretsanta/internal/domain"
	"github.com/neomorfeo/secretsanta/internal/draw"
	"github.com/neomorfeo/secretsanta/internal/token"
)

// --- Mocks ---

type mockRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[string]domain.Session)}
}

// clone copies the slices so callers never share backing arrays with the store.
func clone(s domain.Session) domain.Session {
	s.Participants = slices.Clone(s.Participants)
	s.Assignments = slices.Clone(s.Assignments)
	return s
}

func (m *mockRepo) Create(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return clone(s), nil
}

func (m *mockRepo) Update(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *mockRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	event   domain.Event
	session domain.Session
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{event: e, session: s})
	return nil
}

type mockMailer struct {
	reject map[string]bool
	calls  int
}

func (m *mockMailer) Deliver(_ context.Context, _ string, assignments []domain.Assignment) (domain.DeliveryReport, error) {
	m.calls++
	var report domain.DeliveryReport
	for _, a := range assignments {
		accepted := !m.reject[a.Giver.Email]
		status := "sent"
		if !accepted {
			status = "rejected"
		} else {
			report.Accepted++
		}
		report.Outcomes = append(report.Outcomes, domain.DeliveryOutcome{
			ParticipantID: a.Giver.ID,
			Email:         a.Giver.Email,
			Accepted:      accepted,
			Status:        status,
		})
	}
	return report, nil
}

type failingEncryptor struct{}

func (failingEncryptor) Encrypt(context.Context, []domain.Assignment) (domain.TokenSet, error) {
	return domain.TokenSet{}, errors.New("entropy exhausted")
}

// blockingEncryptor parks the first call until release is closed.
type blockingEncryptor struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEncryptor) Encrypt(_ context.Context, assignments []domain.Assignment) (domain.TokenSet, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return domain.TokenSet{Available: true, Tokens: make([]domain.Token, len(assignments))}, nil
}

type fixture struct {
	repo   *mockRepo
	pub    *mockPublisher
	mailer *mockMailer
	svc    *app.SessionService
}

func newFixture(enc domain.TokenEncryptor) fixture {
	if enc == nil {
		enc = token.New(token.Config{})
	}
	f := fixture{
		repo:   newMockRepo(),
		pub:    &mockPublisher{},
		mailer: &mockMailer{reject: map[string]bool{}},
	}
	f.svc = app.NewSessionService(f.repo, f.pub, fsm.New(), draw.New(draw.NewRandomizer()), enc, f.mailer)
	return f
}

func (f fixture) sessionWith(t *testing.T, emails ...string) domain.Session {
	t.Helper()
	ctx := context.Background()

	s, err := f.svc.Create(ctx, "Office party")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, e := range emails {
		if _, err := f.svc.AddParticipant(ctx, s.ID, e, e); err != nil {
			t.Fatalf("AddParticipant(%q): %v", e, err)
		}
	}
	s, err = f.svc.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return s
}

// --- Tests ---

func TestCreate_Success(t *testing.T) {
	f := newFixture(nil)

	s, err := f.svc.Create(context.Background(), "  Office party ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "Office party" {
		t.Errorf("Name = %q, want %q", s.Name, "Office party")
	}
	if s.Status != domain.StatusOpen {
		t.Errorf("Status = %q, want %q", s.Status, domain.StatusOpen)
	}
	if s.ID == "" {
		t.Error("ID should not be empty")
	}
	if _, err := f.repo.GetByID(context.Background(), s.ID); err != nil {
		t.Fatalf("session not found in repo: %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAddParticipant_Validation(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t)

	tests := []struct {
		name, pname, email, field string
	}{
		{"empty name", "  ", "a@example.com", "name"},
		{"empty email", "Alice", "", "email"},
		{"malformed email", "Alice", "not-an-email", "email"},
		{"display name form", "Alice", "Alice <a@example.com>", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddParticipant(context.Background(), s.ID, tt.pname, tt.email)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
			if !errors.Is(err, domain.ErrInvalidParticipant) {
				t.Error("expected error to match ErrInvalidParticipant")
			}
		})
	}
}

func TestAddParticipant_DuplicateEmail(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "alice@example.com")

	_, err := f.svc.AddParticipant(context.Background(), s.ID, "Alice again", "ALICE@example.com")
	var dupErr *domain.DuplicateParticipantError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateParticipantError, got %v", err)
	}
	if dupErr.Field != "email" {
		t.Errorf("Field = %q, want email", dupErr.Field)
	}
}

func TestAddParticipant_GeneratesDistinctIDs(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com", "c@example.com")

	seen := make(map[string]bool)
	for _, p := range s.Participants {
		if p.ID == "" || seen[p.ID] {
			t.Fatalf("participant id %q is empty or repeated", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com")

	got, err := f.svc.RemoveParticipant(context.Background(), s.ID, s.Participants[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0].Email != "b@example.com" {
		t.Errorf("Participants = %+v, want only b@example.com", got.Participants)
	}

	_, err = f.svc.RemoveParticipant(context.Background(), s.ID, "missing")
	if !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestDraw_Success(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com", "c@example.com", "d@example.com")

	res, err := f.svc.Draw(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Session.Status != domain.StatusDrawn {
		t.Errorf("Status = %q, want %q", res.Session.Status, domain.StatusDrawn)
	}
	if !res.Verification.Valid() {
		t.Errorf("Verification = %+v, want valid", res.Verification)
	}
	if len(res.Session.Assignments) != 4 {
		t.Fatalf("len(Assignments) = %d, want 4", len(res.Session.Assignments))
	}

	stored, _ := f.repo.GetByID(context.Background(), s.ID)
	if len(stored.Assignments) != 4 {
		t.Errorf("stored assignments = %d, want 4", len(stored.Assignments))
	}

	last := f.pub.events[len(f.pub.events)-1]
	if last.event != domain.EventDraw {
		t.Errorf("last event = %q, want %q", last.event, domain.EventDraw)
	}
}

func TestDraw_SingleParticipantYieldsEmptySet(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com")

	res, err := f.svc.Draw(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Session.Assignments) != 0 {
		t.Errorf("len(Assignments) = %d, want 0", len(res.Session.Assignments))
	}
}

func TestEditAfterDraw_DiscardsAssignments(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com", "c@example.com")

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if _, err := f.svc.AddParticipant(context.Background(), s.ID, "Dora", "d@example.com"); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}

	got, _ := f.svc.GetByID(context.Background(), s.ID)
	if got.Status != domain.StatusOpen {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusOpen)
	}
	if len(got.Assignments) != 0 {
		t.Errorf("stale assignments kept: %d", len(got.Assignments))
	}

	_, err := f.svc.Tokens(context.Background(), s.ID)
	if !errors.Is(err, domain.ErrNotDrawn) {
		t.Fatalf("expected ErrNotDrawn, got %v", err)
	}
}

func TestTokens_AlignedWithAssignments(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com", "c@example.com")

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	set, err := f.svc.Tokens(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.Available {
		t.Skip("token sealing unavailable on this host")
	}
	if len(set.Tokens) != 3 {
		t.Errorf("len(Tokens) = %d, want 3", len(set.Tokens))
	}
}

func TestTokens_FailureIsTokenGenerationError(t *testing.T) {
	f := newFixture(failingEncryptor{})
	s := f.sessionWith(t, "a@example.com", "b@example.com")

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	_, err := f.svc.Tokens(context.Background(), s.ID)
	if !errors.Is(err, domain.ErrTokenGeneration) {
		t.Fatalf("expected ErrTokenGeneration, got %v", err)
	}

	// The assignment set survives a token failure.
	got, _ := f.svc.GetByID(context.Background(), s.ID)
	if len(got.Assignments) != 2 {
		t.Errorf("len(Assignments) = %d, want 2", len(got.Assignments))
	}
}

func TestTokens_StaleResultIsSuperseded(t *testing.T) {
	enc := &blockingEncryptor{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(enc)
	s := f.sessionWith(t, "a@example.com", "b@example.com")

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := f.svc.Tokens(context.Background(), s.ID)
		first <- err
	}()
	<-enc.entered

	if _, err := f.svc.Tokens(context.Background(), s.ID); err != nil {
		t.Fatalf("second Tokens: %v", err)
	}
	close(enc.release)

	if err := <-first; !errors.Is(err, domain.ErrTokensSuperseded) {
		t.Fatalf("expected ErrTokensSuperseded, got %v", err)
	}
}

func TestNotify_Success(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com", "c@example.com")

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	report, err := f.svc.Notify(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Accepted != 3 || len(report.Outcomes) != 3 {
		t.Errorf("report = %+v, want 3 accepted outcomes", report)
	}

	got, _ := f.svc.GetByID(context.Background(), s.ID)
	if got.Status != domain.StatusNotified {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusNotified)
	}

	last := f.pub.events[len(f.pub.events)-1]
	if last.event != domain.EventNotify {
		t.Errorf("last event = %q, want %q", last.event, domain.EventNotify)
	}
}

func TestNotify_AllRejectedKeepsDrawn(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com")
	f.mailer.reject["a@example.com"] = true
	f.mailer.reject["b@example.com"] = true

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	report, err := f.svc.Notify(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Accepted != 0 {
		t.Errorf("Accepted = %d, want 0", report.Accepted)
	}

	got, _ := f.svc.GetByID(context.Background(), s.ID)
	if got.Status != domain.StatusDrawn {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusDrawn)
	}
}

func TestNotify_BeforeDraw(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com")

	_, err := f.svc.Notify(context.Background(), s.ID)
	var tErr *domain.TransitionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if f.mailer.calls != 0 {
		t.Errorf("mailer called %d times, want 0", f.mailer.calls)
	}
}

func TestNotified_IsFrozen(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com")

	if _, err := f.svc.Draw(context.Background(), s.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if _, err := f.svc.Notify(context.Background(), s.ID); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	var tErr *domain.TransitionError
	if _, err := f.svc.Draw(context.Background(), s.ID); !errors.As(err, &tErr) {
		t.Errorf("redraw: expected TransitionError, got %v", err)
	}
	if _, err := f.svc.AddParticipant(context.Background(), s.ID, "Carl", "c@example.com"); !errors.As(err, &tErr) {
		t.Errorf("add: expected TransitionError, got %v", err)
	}
	if _, err := f.svc.RemoveParticipant(context.Background(), s.ID, s.Participants[0].ID); !errors.As(err, &tErr) {
		t.Errorf("remove: expected TransitionError, got %v", err)
	}
}

func TestDrawParticipants_Stateless(t *testing.T) {
	f := newFixture(nil)
	participants := []domain.Participant{
		{ID: "1", Name: "Ann", Email: "ann@example.com"},
		{ID: "2", Name: "Bob", Email: "bob@example.com"},
		{ID: "3", Name: "Cid", Email: "cid@example.com"},
	}

	assignments, v, err := f.svc.DrawParticipants(context.Background(), participants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Valid() {
		t.Errorf("Verification = %+v, want valid", v)
	}
	if len(assignments) != 3 {
		t.Errorf("len(assignments) = %d, want 3", len(assignments))
	}
	if len(f.repo.sessions) != 0 {
		t.Errorf("stateless draw stored %d sessions", len(f.repo.sessions))
	}

	_, _, err = f.svc.DrawParticipants(context.Background(), []domain.Participant{
		{ID: "1"}, {ID: "1"},
	})
	if !errors.Is(err, domain.ErrInvalidParticipant) {
		t.Fatalf("expected ErrInvalidParticipant, got %v", err)
	}
}

func TestAddParticipant_ConcurrentAddsAreAllStored(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t)
	ctx := context.Background()

	const adds = 100
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := range adds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := fmt.Sprintf("guest%d@example.com", i)
			if _, err := f.svc.AddParticipant(ctx, s.ID, email, email); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AddParticipant: %v", err)
	}

	got, err := f.svc.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Participants) != adds {
		t.Fatalf("stored %d participants, want %d acknowledged adds", len(got.Participants), adds)
	}
}

func TestDraw_ConcurrentWithEditsMatchesParticipants(t *testing.T) {
	f := newFixture(nil)
	s := f.sessionWith(t, "a@example.com", "b@example.com", "c@example.com")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			email := fmt.Sprintf("late%d@example.com", i)
			if _, err := f.svc.AddParticipant(ctx, s.ID, email, email); err != nil {
				t.Errorf("AddParticipant: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := f.svc.Draw(ctx, s.ID); err != nil {
				t.Errorf("Draw: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := f.svc.Draw(ctx, s.ID); err != nil {
		t.Fatalf("final Draw: %v", err)
	}
	got, err := f.svc.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Participants) != 43 {
		t.Fatalf("stored %d participants, want 43", len(got.Participants))
	}
	if v := draw.Verify(got.Assignments, got.Participants); !v.Valid() {
		t.Errorf("assignments do not cover the stored participants: %+v", v)
	}
}
