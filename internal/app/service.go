package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/secretsanta/internal/domain"
	"github.com/neomorfeo/secretsanta/internal/draw"
)

// SessionService orchestrates the gift-exchange lifecycle: collecting
// participants, drawing, sealing display tokens and notifying givers.
// Operations that load, change and store a session run one at a time per
// session.
type SessionService struct {
	repo      domain.SessionRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	assigner  domain.Assigner
	encryptor domain.TokenEncryptor
	mailer    domain.Mailer
	tokens    *generations
	sessions  *sessionLocks
}

// NewSessionService creates a service with the given adapters.
func NewSessionService(
	repo domain.SessionRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	assigner domain.Assigner,
	encryptor domain.TokenEncryptor,
	mailer domain.Mailer,
) *SessionService {
	return &SessionService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		assigner:  assigner,
		encryptor: encryptor,
		mailer:    mailer,
		tokens:    newGenerations(),
		sessions:  newSessionLocks(),
	}
}

// DrawResult is a drawn session together with the check of its assignment set.
type DrawResult struct {
	Session      domain.Session
	Verification domain.Verification
}

// Create persists a new, open session.
func (s *SessionService) Create(ctx context.Context, name string) (domain.Session, error) {
	id, err := generateID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generating session id: %w", err)
	}

	session := domain.NewSession(id, strings.TrimSpace(name))

	if err := s.repo.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("creating session: %w", err)
	}

	return session, nil
}

// GetByID returns a session with its participants and assignment set.
func (s *SessionService) GetByID(ctx context.Context, id string) (domain.Session, error) {
	return s.repo.GetByID(ctx, id)
}

// AddParticipant validates and appends a participant. Adding to a drawn
// session discards its assignment set.
func (s *SessionService) AddParticipant(ctx context.Context, sessionID, name, email string) (domain.Participant, error) {
	name, email, err := normalizeParticipant(name, email)
	if err != nil {
		return domain.Participant{}, err
	}

	defer s.sessions.lock(sessionID)()

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return domain.Participant{}, err
	}

	for _, p := range session.Participants {
		if strings.EqualFold(p.Email, email) {
			return domain.Participant{}, &domain.DuplicateParticipantError{Field: "email", Value: email}
		}
	}

	id, err := generateID()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("generating participant id: %w", err)
	}
	participant := domain.Participant{ID: id, Name: name, Email: email}

	session.Participants = append(session.Participants, participant)
	if _, err := s.edit(ctx, session); err != nil {
		return domain.Participant{}, err
	}

	return participant, nil
}

// RemoveParticipant drops a participant. Removing from a drawn session
// discards its assignment set.
func (s *SessionService) RemoveParticipant(ctx context.Context, sessionID, participantID string) (domain.Session, error) {
	defer s.sessions.lock(sessionID)()

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	kept := make([]domain.Participant, 0, len(session.Participants))
	for _, p := range session.Participants {
		if p.ID != participantID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(session.Participants) {
		return domain.Session{}, domain.ErrParticipantNotFound
	}

	session.Participants = kept
	return s.edit(ctx, session)
}

// edit applies EventEdit, clears any stale assignment set and stores the
// session. Callers hold the session lock.
func (s *SessionService) edit(ctx context.Context, session domain.Session) (domain.Session, error) {
	next, err := s.validator.Apply(ctx, session.Status, domain.EventEdit)
	if err != nil {
		return domain.Session{}, err
	}

	session.Status = next
	session.Assignments = nil
	session.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("updating session: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventEdit, session); err != nil {
		return domain.Session{}, fmt.Errorf("publishing event %q: %w", domain.EventEdit, err)
	}

	return session, nil
}

// Draw computes a fresh assignment set for the session, replacing any
// previous one.
func (s *SessionService) Draw(ctx context.Context, sessionID string) (DrawResult, error) {
	defer s.sessions.lock(sessionID)()

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return DrawResult{}, err
	}

	next, err := s.validator.Apply(ctx, session.Status, domain.EventDraw)
	if err != nil {
		return DrawResult{}, err
	}

	assignments, verification, err := s.DrawParticipants(ctx, session.Participants)
	if err != nil {
		return DrawResult{}, err
	}

	session.Status = next
	session.Assignments = assignments
	session.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, session); err != nil {
		return DrawResult{}, fmt.Errorf("updating session: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventDraw, session); err != nil {
		return DrawResult{}, fmt.Errorf("publishing event %q: %w", domain.EventDraw, err)
	}

	return DrawResult{Session: session, Verification: verification}, nil
}

// DrawParticipants runs the assignment engine and checks its output without
// touching storage.
func (s *SessionService) DrawParticipants(_ context.Context, participants []domain.Participant) ([]domain.Assignment, domain.Verification, error) {
	assignments, err := s.assigner.Assign(participants)
	if err != nil {
		return nil, domain.Verification{}, err
	}

	verification := draw.Verify(assignments, participants)
	if len(assignments) > 0 && !verification.Valid() {
		return nil, verification, fmt.Errorf("assignment set failed verification: derangement=%t bijection=%t",
			verification.Derangement, verification.Bijection)
	}

	return assignments, verification, nil
}

// Tokens seals the session's current assignment set into fresh display
// tokens. If another Tokens call for the same session starts before this one
// finishes, this one returns domain.ErrTokensSuperseded.
func (s *SessionService) Tokens(ctx context.Context, sessionID string) (domain.TokenSet, error) {
	ticket := s.tokens.next(sessionID)

	set, err := s.sessionTokens(ctx, sessionID)

	if !s.tokens.finish(sessionID, ticket) {
		return domain.TokenSet{}, domain.ErrTokensSuperseded
	}
	return set, err
}

func (s *SessionService) sessionTokens(ctx context.Context, sessionID string) (domain.TokenSet, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return domain.TokenSet{}, err
	}
	if len(session.Assignments) == 0 {
		return domain.TokenSet{}, domain.ErrNotDrawn
	}
	return s.SealTokens(ctx, session.Assignments)
}

// SealTokens seals an arbitrary assignment set.
func (s *SessionService) SealTokens(ctx context.Context, assignments []domain.Assignment) (domain.TokenSet, error) {
	set, err := s.encryptor.Encrypt(ctx, assignments)
	if err != nil {
		if errors.Is(err, domain.ErrTokenGeneration) {
			return domain.TokenSet{}, err
		}
		return domain.TokenSet{}, fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}
	return set, nil
}

// Notify hands the session's assignment set to the mailer. The session only
// moves to "notified" when at least one message was accepted. Edits and
// redraws of the session wait until delivery finishes.
func (s *SessionService) Notify(ctx context.Context, sessionID string) (domain.DeliveryReport, error) {
	defer s.sessions.lock(sessionID)()

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return domain.DeliveryReport{}, err
	}

	next, err := s.validator.Apply(ctx, session.Status, domain.EventNotify)
	if err != nil {
		return domain.DeliveryReport{}, err
	}
	if len(session.Assignments) == 0 {
		return domain.DeliveryReport{}, domain.ErrNotDrawn
	}

	report, err := s.mailer.Deliver(ctx, session.Name, session.Assignments)
	if err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("delivering notifications: %w", err)
	}
	if report.Accepted == 0 {
		return report, nil
	}

	session.Status = next
	session.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, session); err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("updating session: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventNotify, session); err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("publishing event %q: %w", domain.EventNotify, err)
	}

	return report, nil
}
