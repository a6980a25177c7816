package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/secretsanta/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: SessionRepository implements domain.SessionRepository.
var _ domain.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements domain.SessionRepository using SQLite.
type SessionRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*SessionRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection keeps a ":memory:" database alive and shared.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	repo, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*SessionRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &SessionRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SessionRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *SessionRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Name, string(s.Status),
		s.CreatedAt.Format(timeFormat),
		s.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	var status, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("scanning session: %w", err)
	}

	s.Status = domain.Status(status)
	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	s.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	if s.Participants, err = r.participants(ctx, id); err != nil {
		return domain.Session{}, err
	}
	if s.Assignments, err = r.assignments(ctx, s); err != nil {
		return domain.Session{}, err
	}

	return s, nil
}

func (r *SessionRepository) participants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email FROM participants
		 WHERE session_id = ? ORDER BY position`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scanning participant row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// assignments resolves stored id pairs against the session's participants.
func (r *SessionRepository) assignments(ctx context.Context, s domain.Session) ([]domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT giver_id, recipient_id FROM assignments
		 WHERE session_id = ? ORDER BY position`, s.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var giverID, recipientID string
		if err := rows.Scan(&giverID, &recipientID); err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		giver, ok := s.Participant(giverID)
		if !ok {
			return nil, fmt.Errorf("assignment references unknown giver %q", giverID)
		}
		recipient, ok := s.Participant(recipientID)
		if !ok {
			return nil, fmt.Errorf("assignment references unknown recipient %q", recipientID)
		}
		out = append(out, domain.Assignment{Giver: giver, Recipient: recipient})
	}
	return out, rows.Err()
}

// Update stores the session's status and replaces its participants and
// assignments in a single transaction.
func (r *SessionRepository) Update(ctx context.Context, s domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET name = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		s.Name, string(s.Status),
		time.Now().UTC().Format(timeFormat), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}

	for _, stmt := range []string{
		`DELETE FROM assignments WHERE session_id = ?`,
		`DELETE FROM participants WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, s.ID); err != nil {
			return fmt.Errorf("clearing session rows: %w", err)
		}
	}

	for i, p := range s.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (session_id, id, position, name, email)
			 VALUES (?, ?, ?, ?, ?)`,
			s.ID, p.ID, i, p.Name, p.Email,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return duplicateFrom(err, p)
			}
			return fmt.Errorf("inserting participant: %w", err)
		}
	}

	for i, a := range s.Assignments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (session_id, position, giver_id, recipient_id)
			 VALUES (?, ?, ?, ?)`,
			s.ID, i, a.Giver.ID, a.Recipient.ID,
		)
		if err != nil {
			return fmt.Errorf("inserting assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions not updated since before and reports how many went.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE updated_at < ?`,
		before.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// duplicateFrom tells an email collision apart from an id collision.
func duplicateFrom(err error, p domain.Participant) error {
	if strings.Contains(err.Error(), "participants.email") {
		return &domain.DuplicateParticipantError{Field: "email", Value: p.Email}
	}
	return &domain.DuplicateParticipantError{Field: "id", Value: p.ID}
}
