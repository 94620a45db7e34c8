// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All remote store calls go through this interface.
// Commands and views never import a backend SDK directly.
type Service interface {
	// ListTasks returns every task of the current owner, newest first.
	ListTasks(ctx context.Context) ([]Task, error)

	// InsertTask creates a task and returns the stored row,
	// including the backend-assigned ID and creation timestamp.
	InsertTask(ctx context.Context, task NewTask) (Task, error)

	// UpdateTask applies only the fields set in patch to the task with the given ID.
	UpdateTask(ctx context.Context, id string, patch Patch) error

	// DeleteTask deletes the task with the given ID.
	DeleteTask(ctx context.Context, id string) error
}

// Authenticator is the identity side of a backend.
type Authenticator interface {
	// CurrentUser returns the signed-in user.
	CurrentUser(ctx context.Context) (Identity, error)

	// SignOut ends the session and discards stored credentials.
	SignOut(ctx context.Context) error
}

// Backend is a task store bound to an authenticated user.
type Backend interface {
	Service
	Authenticator
}
