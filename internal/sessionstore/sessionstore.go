// Package sessionstore persists the upstream cookie jar of each logged in
// user so that sessions survive a restart.
package sessionstore

import (
	"context"
	"database/sql"
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/scrapers/dronelogbook"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrNotFound = errors.New("session not found")

type Config struct {
	// File is the sqlite database path, ":memory:" keeps everything in
	// memory.
	File string `json:"file"`
}

// OpenDB opens (and creates if missing) the sqlite database.
func (config Config) OpenDB() (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if config.File != ":memory:" {
		_, statErr := os.Stat(config.File)
		if os.IsNotExist(statErr) {
			f, err := os.Create(config.File)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite only allows one writer at a time
	db.SetMaxOpenConns(1)
	if config.File != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			return nil, err
		}
	}
	return db, nil
}

type Session struct {
	ID        string
	Email     string
	Cookies   []dronelogbook.Cookie
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store struct {
	db   *sql.DB
	time chrono.TimeAPI
}

// New applies the schema to db.
func New(ctx context.Context, db *sql.DB, timeAPI chrono.TimeAPI) (*Store, error) {
	assert.NotNil(db)
	assert.NotNil(timeAPI)

	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, time: timeAPI}, nil
}

// Save inserts or replaces a session, CreatedAt is kept on update.
func (s *Store) Save(ctx context.Context, session Session) error {
	cookies, err := json.Marshal(session.Cookies)
	if err != nil {
		return err
	}
	now := s.time.Now().Unix()
	_, err = s.db.ExecContext(
		ctx,
		`insert into sessions (id, email, cookies, created_at, updated_at)
		values (?, ?, ?, ?, ?)
		on conflict (id) do update set
			email = excluded.email,
			cookies = excluded.cookies,
			updated_at = excluded.updated_at`,
		session.ID, session.Email, string(cookies), now, now,
	)
	return err
}

func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(
		ctx,
		`select id, email, cookies, created_at, updated_at from sessions where id = ?`,
		id,
	)

	var (
		session   Session
		cookies   string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&session.ID, &session.Email, &cookies, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	err = json.Unmarshal([]byte(cookies), &session.Cookies)
	if err != nil {
		return Session{}, fmt.Errorf("decode cookies: %w", err)
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)
	return session, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id = ?`, id)
	return err
}

// DeleteIdle removes sessions not saved within maxIdle and returns how many
// were removed.
func (s *Store) DeleteIdle(ctx context.Context, maxIdle time.Duration) (int64, error) {
	before := s.time.Now().Add(-maxIdle).Unix()
	res, err := s.db.ExecContext(ctx, `delete from sessions where updated_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
