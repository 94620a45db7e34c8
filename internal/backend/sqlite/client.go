// Package sqlite implements the service.Backend interface on a local SQLite file,
// for working offline without a hosted project.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

//go:embed schema.sql
var schemaSQL string

// APITimeout is the timeout for database calls.
const APITimeout = 5 * time.Second

const taskColumns = "id, title, description, priority, completed, user_id, created_at"

// Client implements service.Backend against a SQLite database file.
// Every statement is filtered by the configured user id.
type Client struct {
	db   *sql.DB
	user service.Identity
	now  func() time.Time
}

// New opens sqlite.path (tasks.db in the config dir by default).
// Requires user.id to be configured.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.User.ID == "" {
		return nil, errors.New("user.id must be configured for the sqlite backend")
	}
	return Open(ctx, cfg.SQLitePath(), service.Identity{UserID: cfg.User.ID, Email: cfg.User.Email})
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string, user service.Identity) (*Client, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", wrapError(err))
	}
	return &Client{db: db, user: user, now: time.Now}, nil
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
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at DESC, rowid DESC",
		c.user.UserID)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		var (
			t         service.Task
			priority  string
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &priority, &t.Completed, &t.OwnerID, &createdAt); err != nil {
			return nil, wrapError(err)
		}
		t.Priority = service.Priority(priority)
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
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

	created := service.Task{
		ID:          uuid.NewString(),
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
		CreatedAt:   c.now().UTC().Truncate(time.Millisecond),
	}
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		created.ID, created.Title, created.Description, string(created.Priority),
		created.Completed, created.OwnerID, created.CreatedAt.UnixMilli())
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
	if patch.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *patch.Description)
	}
	if patch.Priority != nil {
		sets, args = append(sets, "priority = ?"), append(args, string(*patch.Priority))
	}
	if patch.Completed != nil {
		sets, args = append(sets, "completed = ?"), append(args, *patch.Completed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, c.user.UserID)
	return c.exec(ctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
}

// DeleteTask deletes the user's task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.exec(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", id, c.user.UserID)
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

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return fmt.Errorf("invalid task: %s", sqliteErr.Error())
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("database is busy: %s", sqliteErr.Error())
		}
		return fmt.Errorf("database error: %s", sqliteErr.Error())
	}
	return err
}
