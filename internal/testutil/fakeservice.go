// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskmaster/internal/service"
)

// DefaultUser is the identity FakeService signs in as.
var DefaultUser = service.Identity{UserID: "user-1", Email: "ada@example.com"}

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = service.ErrNotFound

// FakeService is an in-memory implementation of service.Backend for testing.
// It scopes every operation to its user, like a row-level policy would.
type FakeService struct {
	mu        sync.RWMutex
	user      service.Identity
	tasks     []service.Task // newest first
	nextID    int
	clock     time.Time
	calls     map[string]int
	signedOut bool

	// Error injection for testing
	ListTasksErr   error
	InsertTaskErr  error
	UpdateTaskErr  error
	DeleteTaskErr  error
	CurrentUserErr error
	SignOutErr     error
}

// NewFakeService creates an empty FakeService signed in as DefaultUser.
func NewFakeService() *FakeService {
	return &FakeService{
		user:  DefaultUser,
		clock: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		calls: make(map[string]int),
	}
}

// SetUser changes the signed-in identity.
func (f *FakeService) SetUser(u service.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = u
}

// AddTask seeds a task owned by the current user and returns it.
// Seeded tasks are newer than every task added before them.
func (f *FakeService) AddTask(id, title string, priority service.Priority, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	task := service.Task{
		ID:        id,
		Title:     title,
		Priority:  priority,
		Completed: completed,
		OwnerID:   f.user.UserID,
		CreatedAt: f.tick(),
	}
	f.tasks = append([]service.Task{task}, f.tasks...)
	return task
}

// AddForeignTask seeds a task owned by another user.
func (f *FakeService) AddForeignTask(id, title, ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append([]service.Task{{
		ID:        id,
		Title:     title,
		Priority:  service.PriorityMedium,
		OwnerID:   ownerID,
		CreatedAt: f.tick(),
	}}, f.tasks...)
}

// Stored returns every stored task of the current user, newest first.
func (f *FakeService) Stored() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.owned()
}

// Calls returns how many times the named method was called.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// TotalCalls returns the number of store calls (list, insert, update, delete).
func (f *FakeService) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls["ListTasks"] + f.calls["InsertTask"] + f.calls["UpdateTask"] + f.calls["DeleteTask"]
}

// SignedOut reports whether SignOut succeeded.
func (f *FakeService) SignedOut() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.signedOut
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.count("ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.owned(), nil
}

// InsertTask implements service.Service.
func (f *FakeService) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	f.count("InsertTask")
	if f.InsertTaskErr != nil {
		return service.Task{}, f.InsertTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if task.OwnerID != f.user.UserID {
		return service.Task{}, errors.New("new row violates row-level security policy")
	}

	f.nextID++
	created := service.Task{
		ID:          fmt.Sprintf("task-%d", f.nextID),
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Completed:   task.Completed,
		OwnerID:     task.OwnerID,
		CreatedAt:   f.tick(),
	}
	f.tasks = append([]service.Task{created}, f.tasks...)
	return created, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	f.count("UpdateTask")
	if f.UpdateTaskErr != nil {
		return f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id && t.OwnerID == f.user.UserID {
			f.tasks[i] = patch.Apply(t)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.count("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id && t.OwnerID == f.user.UserID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// CurrentUser implements service.Authenticator.
func (f *FakeService) CurrentUser(ctx context.Context) (service.Identity, error) {
	f.count("CurrentUser")
	if f.CurrentUserErr != nil {
		return service.Identity{}, f.CurrentUserErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.user, nil
}

// SignOut implements service.Authenticator.
func (f *FakeService) SignOut(ctx context.Context) error {
	f.count("SignOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = true
	return nil
}

func (f *FakeService) count(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

// tick advances the fake clock by one minute. Callers hold f.mu.
func (f *FakeService) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

// owned returns the current user's tasks sorted newest first. Callers hold f.mu.
func (f *FakeService) owned() []service.Task {
	var out []service.Task
	for _, t := range f.tasks {
		if t.OwnerID == f.user.UserID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
