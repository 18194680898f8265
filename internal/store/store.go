// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for attempt history and module completion.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS letter_attempts (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			module_id INTEGER NOT NULL,
			letter TEXT NOT NULL,
			detected TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			attempt_number INTEGER NOT NULL CHECK (attempt_number > 0),
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS module_completions (
			user_id TEXT NOT NULL,
			module_id INTEGER NOT NULL,
			completed_at TEXT NOT NULL,
			PRIMARY KEY (user_id, module_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_letter_attempts_user ON letter_attempts(user_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendAttempt stores a single attempt. Attempts are never updated.
func (s *Store) AppendAttempt(ctx context.Context, a model.Attempt) error {
	_, err := s.InsertAttempt(ctx, a)
	return err
}

// InsertAttempt stores a single attempt and returns its row id.
func (s *Store) InsertAttempt(ctx context.Context, a model.Attempt) (int64, error) {
	if a.UserID == "" {
		return 0, fmt.Errorf("attempt has no user id")
	}
	if a.AttemptNumber <= 0 {
		return 0, fmt.Errorf("attempt number must be positive, got %d", a.AttemptNumber)
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO letter_attempts (user_id, module_id, letter, detected, is_correct, attempt_number, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID,
		a.ModuleID,
		string(a.Letter),
		string(a.Detected),
		a.IsCorrect,
		a.AttemptNumber,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAttempts returns all attempts for a user, newest first.
func (s *Store) ListAttempts(ctx context.Context, userID string) ([]model.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, module_id, letter, detected, is_correct, attempt_number, created_at
		FROM letter_attempts
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.Attempt
	for rows.Next() {
		var (
			a         model.Attempt
			letter    string
			detected  string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ModuleID, &letter, &detected, &a.IsCorrect, &a.AttemptNumber, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, err
		}
		a.Letter = model.Symbol(letter)
		a.Detected = model.Symbol(detected)
		a.CreatedAt = parsed
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// MarkModuleCompleted records that a user completed a module. Repeated calls
// keep the first completion time.
func (s *Store) MarkModuleCompleted(ctx context.Context, userID string, moduleID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO module_completions (user_id, module_id, completed_at) VALUES (?, ?, ?)`,
		userID, moduleID, time.Now().UTC().Format(timeLayout))
	return err
}

// CompletedModules returns the ids of modules the user has completed.
func (s *Store) CompletedModules(ctx context.Context, userID string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT module_id FROM module_completions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
