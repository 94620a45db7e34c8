// Package googletasks implements the service.Backend interface using Google Tasks API.
//
// Google Tasks has no priority or creation time, so both travel in a trailer
// line appended to the task notes, e.g.
//
//	Pick up on the way home
//
//	[taskmaster priority=high created=2026-10-16T09:30:00Z]
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// TasksScope is the OAuth scope for Google Tasks.
	TasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// AnonymousUser is the identity used when user.id is not configured.
// The Google account itself scopes every list.
var AnonymousUser = service.Identity{UserID: "me"}

// Client implements service.Backend using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	cfg    *config.Config
	listID string
	user   service.Identity
	now    func() time.Time
}

// OAuthConfig reads oauth_client.json for the tasks scope.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, TasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Create HTTP client with a token source that auto-refreshes
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	user := AnonymousUser
	if cfg.User.ID != "" {
		user = service.Identity{UserID: cfg.User.ID, Email: cfg.User.Email}
	}
	return &Client{svc: svc, cfg: cfg, listID: DefaultListID, user: user, now: time.Now}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, listID: DefaultListID, user: AnonymousUser, now: time.Now}, nil
}

// ListTasks returns every task of the default list, completed and hidden ones included,
// newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	result := []service.Task{}
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, c.fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}

	// The API orders by position, not by age.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// InsertTask creates a task at the top of the default list.
func (c *Client) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	meta := Metadata{Priority: task.Priority, Created: c.now().UTC().Truncate(time.Second)}
	in := &tasks.Task{
		Title:  task.Title,
		Notes:  EncodeNotes(task.Description, meta),
		Status: statusNeedsAction,
	}
	if task.Completed {
		in.Status = statusCompleted
	}

	created, err := c.svc.Tasks.Insert(c.listID, in).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.fromAPI(created), nil
}

// UpdateTask patches the task. Description and priority changes rewrite the notes,
// so the current notes are fetched first.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	out := &tasks.Task{}
	if patch.Title != nil {
		out.Title = *patch.Title
		if out.Title == "" {
			out.ForceSendFields = append(out.ForceSendFields, "Title")
		}
	}
	if patch.Description != nil || patch.Priority != nil {
		current, err := c.svc.Tasks.Get(c.listID, id).Context(ctx).Do()
		if err != nil {
			return wrapError(err)
		}
		description, meta := DecodeNotes(current.Notes)
		if meta.Created.IsZero() {
			meta.Created = parseTime(current.Updated)
		}
		if patch.Description != nil {
			description = *patch.Description
		}
		if patch.Priority != nil {
			meta.Priority = *patch.Priority
		}
		out.Notes = EncodeNotes(description, meta)
	}
	if patch.Completed != nil {
		if *patch.Completed {
			out.Status = statusCompleted
		} else {
			out.Status = statusNeedsAction
			out.NullFields = append(out.NullFields, "Completed")
		}
	}

	if _, err := c.svc.Tasks.Patch(c.listID, id, out).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// CurrentUser returns the configured identity, or AnonymousUser.
func (c *Client) CurrentUser(ctx context.Context) (service.Identity, error) {
	return c.user, nil
}

// SignOut removes token.json.
func (c *Client) SignOut(ctx context.Context) error {
	if c.cfg == nil || !c.cfg.HasToken() {
		return nil
	}
	if err := c.cfg.RemoveToken(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

func (c *Client) fromAPI(t *tasks.Task) service.Task {
	description, meta := DecodeNotes(t.Notes)
	created := meta.Created
	if created.IsZero() {
		created = parseTime(t.Updated)
	}
	priority := meta.Priority
	if !priority.Valid() {
		priority = service.DefaultPriority
	}
	return service.Task{
		ID:          t.Id,
		Title:       t.Title,
		Description: description,
		Priority:    priority,
		Completed:   t.Status == statusCompleted,
		OwnerID:     c.user.UserID,
		CreatedAt:   created,
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: taskmaster login)")
		case http.StatusNotFound:
			return service.ErrNotFound
		}
	}

	// Token refresh failures surface as *oauth2.RetrieveError.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("token expired or revoked (run: taskmaster login)")
	}
	return err
}
