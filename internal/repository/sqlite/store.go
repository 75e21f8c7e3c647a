// Package sqlite is an embedded Store backend used for local development and tests.
// Writes are serialized by a single connection, which stands in for row locks.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/repository"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id     INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	assigned_to  INTEGER REFERENCES users (id) ON DELETE SET NULL,
	title        TEXT NOT NULL,
	description  TEXT,
	priority     TEXT NOT NULL DEFAULT 'medium',
	status       TEXT NOT NULL DEFAULT 'todo',
	completed    INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME,
	due_date     DATETIME,
	tags         TEXT NOT NULL DEFAULT '[]',
	is_deleted   INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task_comment (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    INTEGER NOT NULL REFERENCES task (id) ON DELETE CASCADE,
	user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task_file (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id      INTEGER NOT NULL REFERENCES task (id) ON DELETE CASCADE,
	user_id      INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	filename     TEXT NOT NULL,
	stored_name  TEXT NOT NULL UNIQUE,
	content_type TEXT NOT NULL,
	size         INTEGER NOT NULL,
	is_deleted   INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS task_audit (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	old_values  TEXT,
	new_values  TEXT,
	changes     TEXT,
	changed_at  DATETIME NOT NULL
);
`

// querier abstracts *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db   *sql.DB
	q    querier
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore opens (or creates) a SQLite database at path and ensures the schema exists.
// The caller is responsible for calling Close.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Tasks() repository.ITaskRepository       { return &TaskRepository{q: s.q} }
func (s *Store) Users() repository.IUserRepository       { return &UserRepository{q: s.q} }
func (s *Store) Comments() repository.ICommentRepository { return &CommentRepository{q: s.q} }
func (s *Store) Files() repository.IFileRepository       { return &FileRepository{q: s.q} }
func (s *Store) Audits() repository.ITaskAuditRepository { return &TaskAuditRepository{q: s.q} }
func (s *Store) Ping(ctx context.Context) error          { return s.db.PingContext(ctx) }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateUser inserts an account. Accounts normally come from the identity service;
// this exists for seeding local databases and tests.
func (s *Store) CreateUser(ctx context.Context, email, name string) (*entity.User, error) {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (email, name, is_active, created_at) VALUES (?, ?, 1, ?)`, email, name, now)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &entity.User{ID: int(id), Email: email, Name: name, IsActive: true, CreatedAt: now}, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
