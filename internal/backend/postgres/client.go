// Package postgres implements the service.Backend interface on a self-hosted
// PostgreSQL database with the same tasks table layout as the hosted store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

// APITimeout is the timeout for database calls.
const APITimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
	completed   BOOLEAN NOT NULL DEFAULT FALSE,
	user_id     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS tasks_user_created_idx ON tasks (user_id, created_at DESC);
`

const taskColumns = "id, title, description, priority, completed, user_id, created_at"

// Client implements service.Backend against PostgreSQL.
// Every statement is filtered by the configured user id.
type Client struct {
	db   *sql.DB
	user service.Identity
}

// New opens the database from postgres.dsn and ensures the schema exists.
// Requires user.id to be configured.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Postgres.DSN == "" {
		return nil, errors.New("postgres.dsn must be configured")
	}
	if cfg.User.ID == "" {
		return nil, errors.New("user.id must be configured for the postgres backend")
	}
	return Open(ctx, cfg.Postgres.DSN, service.Identity{UserID: cfg.User.ID, Email: cfg.User.Email})
}

// Open connects to dsn as user and ensures the schema exists.
func Open(ctx context.Context, dsn string, user service.Identity) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c := &Client{db: db, user: user}
	if err := c.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// EnsureSchema creates the tasks table and its index if missing.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return wrapError(fmt.Errorf("failed to create schema: %w", err))
	}
	return nil
}

// Close closes the database.
func (c *Client) Close() error {
	return c.db.Close()
}

// ListTasks returns the user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id",
		c.user.UserID)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, wrapError(err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err)
	}
	return tasks, nil
}

// InsertTask inserts one row and returns it as stored.
func (c *Client) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	if task.OwnerID != c.user.UserID {
		return service.Task{}, fmt.Errorf("cannot create a task for user %q", task.OwnerID)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	row := c.db.QueryRowContext(ctx,
		"INSERT INTO tasks (id, title, description, priority, completed, user_id) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+taskColumns,
		uuid.NewString(), task.Title, task.Description, string(task.Priority), task.Completed, task.OwnerID)
	created, err := scanTask(row)
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return created, nil
}

// UpdateTask sets the patched columns of the user's task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	if patch.Completed != nil {
		set("completed", *patch.Completed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, c.user.UserID)

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	return c.exec(ctx, query, args...)
}

// DeleteTask deletes the user's task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, c.user.UserID)
}

// CurrentUser returns the configured identity.
func (c *Client) CurrentUser(ctx context.Context) (service.Identity, error) {
	return c.user, nil
}

// SignOut closes the database. The configured identity stays in config.yaml.
func (c *Client) SignOut(ctx context.Context) error {
	return c.db.Close()
}

// exec runs a statement that must touch exactly one row.
func (c *Client) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (service.Task, error) {
	var (
		t        service.Task
		priority string
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &priority, &t.Completed, &t.OwnerID, &t.CreatedAt); err != nil {
		return service.Task{}, err
	}
	t.Priority = service.Priority(priority)
	return t, nil
}

// wrapError wraps database errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return service.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28":
			return fmt.Errorf("database rejected credentials: %s", pqErr.Message)
		case "23":
			return fmt.Errorf("invalid task: %s", pqErr.Message)
		}
		return fmt.Errorf("database error: %s", pqErr.Message)
	}
	return err
}
