// Package state holds the signed-in user's task list and keeps it in sync
// with the remote task store.
package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"taskmaster/internal/logging"
	"taskmaster/internal/service"
)

// DeletePrompt is the question asked before a task is deleted.
const DeletePrompt = "Are you sure you want to delete this task?"

var (
	// ErrTitleRequired is returned when a task title is blank after trimming.
	ErrTitleRequired = errors.New("title required")

	// ErrEmptyPatch is returned when an update sets no field.
	ErrEmptyPatch = errors.New("nothing to update")

	// ErrNotConfirmed is returned when the user declines a delete.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// Confirmer asks the user to confirm an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed is a Confirmer whose answer is already known,
// e.g. from a --yes flag or a submitted confirmation form.
type Confirmed bool

// Confirm implements Confirmer.
func (c Confirmed) Confirm(context.Context, string) bool {
	return bool(c)
}

// Manager owns the in-memory task list of one user.
//
// Every mutation calls the store first and touches the cached list only after
// the call succeeded, using the store's answer. Failures are logged and
// returned; the cache is left as it was. Remote calls run without holding the
// lock, so overlapping calls on the same task reconcile last-response-wins.
type Manager struct {
	svc   service.Service
	owner service.Identity
	log   *logrus.Logger

	mu      sync.RWMutex
	tasks   []service.Task
	loading bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used as the diagnostic channel.
func WithLogger(l *logrus.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New creates a Manager for owner. The list starts empty and loading.
func New(svc service.Service, owner service.Identity, opts ...Option) *Manager {
	m := &Manager{
		svc:     svc,
		owner:   owner,
		log:     logging.Logger,
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Owner returns the user this manager acts for.
func (m *Manager) Owner() service.Identity {
	return m.owner
}

// Loading reports whether the first load is still outstanding.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Tasks returns a copy of the cached list, newest first.
func (m *Manager) Tasks() []service.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]service.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// Find returns the cached task with the given ID.
func (m *Manager) Find(id string) (service.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Load replaces the cached list with the store's tasks.
func (m *Manager) Load(ctx context.Context) error {
	tasks, err := m.svc.ListTasks(ctx)
	if err != nil {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
		m.log.Errorf("Event ID: TASKS_FETCH_FAILED, Description: Error fetching tasks: %v", err)
		return err
	}

	m.mu.Lock()
	m.tasks = tasks
	m.loading = false
	m.mu.Unlock()

	m.log.Debugf("Event ID: TASKS_FETCHED, Description: Fetched %d tasks for user %s", len(tasks), m.owner.UserID)
	return nil
}

// Create inserts a new, not yet completed task owned by the current user
// and puts the stored row at the front of the list.
func (m *Manager) Create(ctx context.Context, title, description string, priority service.Priority) (service.Task, error) {
	if strings.TrimSpace(title) == "" {
		return service.Task{}, ErrTitleRequired
	}
	if priority == "" {
		priority = service.DefaultPriority
	}

	created, err := m.svc.InsertTask(ctx, service.NewTask{
		Title:       title,
		Description: description,
		Priority:    priority,
		Completed:   false,
		OwnerID:     m.owner.UserID,
	})
	if err != nil {
		m.log.Errorf("Event ID: TASK_CREATE_FAILED, Description: Error adding task: %v", err)
		return service.Task{}, err
	}

	m.mu.Lock()
	m.tasks = append([]service.Task{created}, m.tasks...)
	m.mu.Unlock()

	m.log.Debugf("Event ID: TASK_CREATED, Description: Created task %s", created.ID)
	return created, nil
}

// Update applies patch to the task with the given ID in the store, then merges
// the same fields into the cached task. A task missing from the cache is left alone.
func (m *Manager) Update(ctx context.Context, id string, patch service.Patch) error {
	if patch.IsEmpty() {
		return ErrEmptyPatch
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrTitleRequired
	}

	if err := m.svc.UpdateTask(ctx, id, patch); err != nil {
		m.log.Errorf("Event ID: TASK_UPDATE_FAILED, Description: Error updating task %s: %v", id, err)
		return err
	}

	m.mu.Lock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i] = patch.Apply(m.tasks[i])
			break
		}
	}
	m.mu.Unlock()

	m.log.Debugf("Event ID: TASK_UPDATED, Description: Updated task %s", id)
	return nil
}

// Delete asks c for confirmation, deletes the task in the store and then drops
// it from the cached list.
func (m *Manager) Delete(ctx context.Context, id string, c Confirmer) error {
	if c == nil || !c.Confirm(ctx, DeletePrompt) {
		return ErrNotConfirmed
	}

	if err := m.svc.DeleteTask(ctx, id); err != nil {
		m.log.Errorf("Event ID: TASK_DELETE_FAILED, Description: Error deleting task %s: %v", id, err)
		return err
	}

	m.mu.Lock()
	kept := make([]service.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
	m.mu.Unlock()

	m.log.Debugf("Event ID: TASK_DELETED, Description: Deleted task %s", id)
	return nil
}
