// Package cassandra implements the service.Backend interface on a Cassandra table
// partitioned by user id.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

// APITimeout is the timeout for database calls.
const APITimeout = 5 * time.Second

// Task ids are time UUIDs, so clustering by id DESC lists newest first.
const tableSchema = `CREATE TABLE IF NOT EXISTS tasks (
	user_id TEXT,
	id TIMEUUID,
	title TEXT,
	description TEXT,
	priority TEXT,
	completed BOOLEAN,
	created_at TIMESTAMP,
	PRIMARY KEY ((user_id), id)
) WITH CLUSTERING ORDER BY (id DESC)`

// Client implements service.Backend against Cassandra.
// Every statement is restricted to the configured user's partition.
type Client struct {
	session *gocql.Session
	user    service.Identity
	now     func() time.Time
}

// New connects to cassandra.hosts and opens cassandra.keyspace.
// Requires user.id to be configured.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if len(cfg.Cassandra.Hosts) == 0 {
		return nil, errors.New("cassandra.hosts must be configured")
	}
	if cfg.User.ID == "" {
		return nil, errors.New("user.id must be configured for the cassandra backend")
	}
	return Connect(ctx, cfg.Cassandra.Hosts, cfg.Cassandra.Keyspace,
		service.Identity{UserID: cfg.User.ID, Email: cfg.User.Email})
}

// Connect creates the keyspace and table if needed and opens a session on the keyspace.
func Connect(ctx context.Context, hosts []string, keyspace string, user service.Identity) (*Client, error) {
	if !validIdentifier(keyspace) {
		return nil, fmt.Errorf("invalid cassandra keyspace %q", keyspace)
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = "system"
	cluster.Timeout = APITimeout
	cluster.ConnectTimeout = APITimeout
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", wrapError(err))
	}
	err = session.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, keyspace)).
		WithContext(ctx).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace: %w", wrapError(err))
	}

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keyspace %s: %w", keyspace, wrapError(err))
	}
	if err := session.Query(tableSchema).WithContext(ctx).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create table: %w", wrapError(err))
	}
	return &Client{session: session, user: user, now: time.Now}, nil
}

// Close closes the session.
func (c *Client) Close() {
	c.session.Close()
}

// ListTasks returns the user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	iter := c.session.Query(`SELECT id, title, description, priority, completed, created_at
		FROM tasks WHERE user_id = ?`, c.user.UserID).WithContext(ctx).Iter()

	tasks := []service.Task{}
	var (
		id        gocql.UUID
		title     string
		desc      string
		priority  string
		completed bool
		createdAt time.Time
	)
	for iter.Scan(&id, &title, &desc, &priority, &completed, &createdAt) {
		tasks = append(tasks, service.Task{
			ID:          id.String(),
			Title:       title,
			Description: desc,
			Priority:    service.Priority(priority),
			Completed:   completed,
			OwnerID:     c.user.UserID,
			CreatedAt:   createdAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
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

	now := c.now().UTC().Truncate(time.Millisecond)
	id := gocql.UUIDFromTime(now)
	err := c.session.Query(`INSERT INTO tasks (user_id, id, title, description, priority, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.OwnerID, id, task.Title, task.Description, string(task.Priority), task.Completed, now,
	).WithContext(ctx).Exec()
	if err != nil {
		return service.Task{}, wrapError(err)
	}

	return service.Task{
		ID:          id.String(),
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
		CreatedAt:   now,
	}, nil
}

// UpdateTask sets the patched columns of the user's task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	if patch.IsEmpty() {
		return nil
	}
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return service.ErrNotFound
	}
	assignments, values := updateColumns(patch)
	stmt := "UPDATE tasks SET " + strings.Join(assignments, ", ") + " WHERE user_id = ? AND id = ? IF EXISTS"
	return c.applyOne(ctx, stmt, append(values, c.user.UserID, uid)...)
}

// DeleteTask deletes the user's task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return service.ErrNotFound
	}
	return c.applyOne(ctx, "DELETE FROM tasks WHERE user_id = ? AND id = ? IF EXISTS", c.user.UserID, uid)
}

// applyOne runs a conditional statement and maps a missing row to ErrNotFound.
func (c *Client) applyOne(ctx context.Context, stmt string, values ...any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	applied, err := c.session.Query(stmt, values...).WithContext(ctx).MapScanCAS(map[string]any{})
	if err != nil {
		return wrapError(err)
	}
	if !applied {
		return service.ErrNotFound
	}
	return nil
}

// CurrentUser returns the configured identity.
func (c *Client) CurrentUser(ctx context.Context) (service.Identity, error) {
	return c.user, nil
}

// SignOut closes the session. The configured identity stays in config.yaml.
func (c *Client) SignOut(ctx context.Context) error {
	c.Close()
	return nil
}

// updateColumns builds the SET assignments and their bound values for a patch.
func updateColumns(p service.Patch) ([]string, []any) {
	var (
		assignments []string
		values      []any
	)
	if p.Title != nil {
		assignments = append(assignments, "title = ?")
		values = append(values, *p.Title)
	}
	if p.Description != nil {
		assignments = append(assignments, "description = ?")
		values = append(values, *p.Description)
	}
	if p.Priority != nil {
		assignments = append(assignments, "priority = ?")
		values = append(values, string(*p.Priority))
	}
	if p.Completed != nil {
		assignments = append(assignments, "completed = ?")
		values = append(values, *p.Completed)
	}
	return assignments, values
}

// validIdentifier reports whether s can be used unquoted as a keyspace name.
func validIdentifier(s string) bool {
	if s == "" || len(s) > 48 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// wrapError wraps driver errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gocql.ErrTimeoutNoResponse) {
		return fmt.Errorf("request timed out")
	}
	if errors.Is(err, gocql.ErrNotFound) {
		return service.ErrNotFound
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrNoConnectionsStarted) {
		return fmt.Errorf("cassandra unreachable: %w", err)
	}
	return err
}
