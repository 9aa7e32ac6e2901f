package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/saravenpi/baatcheet/internal/models"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no stored session")

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	token     TEXT    NOT NULL,
	user_id   INTEGER NOT NULL,
	user_name TEXT    NOT NULL DEFAULT '',
	email     TEXT    NOT NULL DEFAULT '',
	avatar    TEXT    NOT NULL DEFAULT '',
	server    TEXT    NOT NULL DEFAULT '',
	saved_at  INTEGER NOT NULL
)`

// SessionStore persists the logged-in user across restarts. It holds at
// most one row.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates) the sqlite file at path.
func Open(path string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to restrict session file: %w", err)
	}

	return &SessionStore{db: db, now: time.Now}, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored session.
func (s *SessionStore) Save(ctx context.Context, auth models.Auth) error {
	if !auth.Valid() {
		return fmt.Errorf("refusing to store an incomplete session")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, user_id, user_name, email, avatar, server, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			user_name = excluded.user_name,
			email = excluded.email,
			avatar = excluded.avatar,
			server = excluded.server,
			saved_at = excluded.saved_at`,
		auth.Token, auth.User.ID, auth.User.Name, auth.User.Email, auth.User.Avatar, auth.Server,
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored session or ErrNoSession.
func (s *SessionStore) Load(ctx context.Context) (models.Auth, time.Time, error) {
	var (
		auth    models.Auth
		savedAt int64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, user_name, email, avatar, server, saved_at
		FROM session WHERE id = 1`)
	err := row.Scan(&auth.Token, &auth.User.ID, &auth.User.Name, &auth.User.Email,
		&auth.User.Avatar, &auth.Server, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Auth{}, time.Time{}, ErrNoSession
	}
	if err != nil {
		return models.Auth{}, time.Time{}, fmt.Errorf("failed to load session: %w", err)
	}
	return auth, time.Unix(savedAt, 0), nil
}

// Clear forgets the stored session. Clearing an empty store is not an error.
func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
