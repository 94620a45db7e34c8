// Package neo4j implements the service.Backend interface on Task nodes in a Neo4j graph.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

// APITimeout is the timeout for database calls.
const APITimeout = 5 * time.Second

const (
	schemaQuery = `CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE`

	listQuery = `
		MATCH (t:Task {user_id: $userId})
		RETURN t.id AS id, t.title AS title, t.description AS description,
		       t.priority AS priority, t.completed AS completed,
		       t.user_id AS user_id, t.created_at AS created_at
		ORDER BY t.created_at DESC, t.id DESC`

	insertQuery = `
		CREATE (t:Task {
			id: $id, title: $title, description: $description, priority: $priority,
			completed: $completed, user_id: $userId, created_at: $createdAt
		})`

	updateQuery = `
		MATCH (t:Task {id: $id, user_id: $userId})
		SET t += $props
		RETURN count(t) AS matched`

	deleteQuery = `
		MATCH (t:Task {id: $id, user_id: $userId})
		DETACH DELETE t
		RETURN count(*) AS matched`
)

// Client implements service.Backend against Neo4j.
// Every query matches on the configured user id.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	user     service.Identity
	now      func() time.Time
}

// New connects to neo4j.uri. Requires user.id to be configured.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Neo4j.URI == "" {
		return nil, errors.New("neo4j.uri must be configured")
	}
	if cfg.User.ID == "" {
		return nil, errors.New("user.id must be configured for the neo4j backend")
	}
	auth := neo4j.NoAuth()
	if cfg.Neo4j.Username != "" {
		auth = neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return Connect(ctx, driver, cfg.Neo4j.Database,
		service.Identity{UserID: cfg.User.ID, Email: cfg.User.Email})
}

// Connect verifies connectivity and ensures the id constraint exists.
// The client takes ownership of driver.
func Connect(ctx context.Context, driver neo4j.DriverWithContext, database string, user service.Identity) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(context.Background())
		return nil, fmt.Errorf("failed to connect to neo4j: %w", wrapError(err))
	}

	c := &Client{driver: driver, database: database, user: user, now: time.Now}
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, schemaQuery, nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		driver.Close(context.Background())
		return nil, fmt.Errorf("failed to create constraint: %w", wrapError(err))
	}
	return c, nil
}

// Close closes the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: c.database})
}

// ListTasks returns the user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, listQuery, map[string]any{"userId": c.user.UserID})
		if err != nil {
			return nil, err
		}
		tasks := []service.Task{}
		for res.Next(ctx) {
			task, err := taskFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		return tasks, res.Err()
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result.([]service.Task), nil
}

// InsertTask creates one Task node and returns it as stored.
func (c *Client) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	if task.OwnerID != c.user.UserID {
		return service.Task{}, fmt.Errorf("cannot create a task for user %q", task.OwnerID)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	stored := service.Task{
		ID:          uuid.NewString(),
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
		CreatedAt:   c.now().UTC().Truncate(time.Millisecond),
	}

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, insertQuery, insertParams(stored))
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return stored, nil
}

// UpdateTask sets the patched properties of the user's task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	if patch.IsEmpty() {
		return nil
	}
	return c.writeOne(ctx, updateQuery, map[string]any{
		"id":     id,
		"userId": c.user.UserID,
		"props":  patchProps(patch),
	})
}

// DeleteTask deletes the user's task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.writeOne(ctx, deleteQuery, map[string]any{"id": id, "userId": c.user.UserID})
}

// writeOne runs a query returning a "matched" count and maps zero to ErrNotFound.
func (c *Client) writeOne(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		matched, _, err := neo4j.GetRecordValue[int64](record, "matched")
		return matched, err
	})
	if err != nil {
		return wrapError(err)
	}
	if result.(int64) == 0 {
		return service.ErrNotFound
	}
	return nil
}

// CurrentUser returns the configured identity.
func (c *Client) CurrentUser(ctx context.Context) (service.Identity, error) {
	return c.user, nil
}

// SignOut closes the driver. The configured identity stays in config.yaml.
func (c *Client) SignOut(ctx context.Context) error {
	return c.Close(ctx)
}

func insertParams(t service.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"priority":    string(t.Priority),
		"completed":   t.Completed,
		"userId":      t.OwnerID,
		"createdAt":   t.CreatedAt,
	}
}

// patchProps builds the property map merged into the node by SET +=.
func patchProps(p service.Patch) map[string]any {
	props := map[string]any{}
	if p.Title != nil {
		props["title"] = *p.Title
	}
	if p.Description != nil {
		props["description"] = *p.Description
	}
	if p.Priority != nil {
		props["priority"] = string(*p.Priority)
	}
	if p.Completed != nil {
		props["completed"] = *p.Completed
	}
	return props
}

func taskFromRecord(record *neo4j.Record) (service.Task, error) {
	var (
		t   service.Task
		err error
	)
	str := func(key string) string {
		if err != nil {
			return ""
		}
		var v string
		v, _, err = neo4j.GetRecordValue[string](record, key)
		return v
	}

	t.ID = str("id")
	t.Title = str("title")
	t.Description = str("description")
	t.Priority = service.Priority(str("priority"))
	t.OwnerID = str("user_id")
	if err != nil {
		return service.Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	if t.Completed, _, err = neo4j.GetRecordValue[bool](record, "completed"); err != nil {
		return service.Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	if t.CreatedAt, _, err = neo4j.GetRecordValue[time.Time](record, "created_at"); err != nil {
		return service.Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	return t, nil
}

// wrapError wraps driver errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	if neo4j.IsConnectivityError(err) {
		return fmt.Errorf("neo4j unreachable: %w", err)
	}
	return err
}
