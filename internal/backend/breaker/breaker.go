// Package breaker wraps a service.Backend in a circuit breaker so a failing
// task store is not hammered by every view refresh.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"taskmaster/internal/service"
)

// Name identifies the breaker in logs.
const Name = "task-store"

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("task store unavailable, try again shortly")

// Settings configures the breaker.
type Settings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before letting one call through.
	Timeout time.Duration

	// Logger receives state changes. Nil uses logrus.StandardLogger().
	Logger *logrus.Logger
}

// Backend is a service.Backend whose store calls go through a circuit breaker.
// Sign-in calls pass straight through.
type Backend struct {
	next service.Backend
	cb   *gobreaker.CircuitBreaker
}

// Wrap returns next behind a circuit breaker.
func Wrap(next service.Backend, s Settings) *Backend {
	log := s.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A missing task is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, service.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
	return &Backend{next: next, cb: cb}
}

// State returns the current breaker state.
func (b *Backend) State() gobreaker.State {
	return b.cb.State()
}

// ListTasks implements service.Service.
func (b *Backend) ListTasks(ctx context.Context) ([]service.Task, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.ListTasks(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]service.Task), nil
}

// InsertTask implements service.Service.
func (b *Backend) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.InsertTask(ctx, task)
	})
	if err != nil {
		return service.Task{}, err
	}
	return res.(service.Task), nil
}

// UpdateTask implements service.Service.
func (b *Backend) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.UpdateTask(ctx, id, patch)
	})
	return err
}

// DeleteTask implements service.Service.
func (b *Backend) DeleteTask(ctx context.Context, id string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.DeleteTask(ctx, id)
	})
	return err
}

// CurrentUser implements service.Authenticator.
func (b *Backend) CurrentUser(ctx context.Context) (service.Identity, error) {
	return b.next.CurrentUser(ctx)
}

// SignOut implements service.Authenticator.
func (b *Backend) SignOut(ctx context.Context) error {
	return b.next.SignOut(ctx)
}

func (b *Backend) execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w (%v)", ErrUnavailable, err)
	}
	return res, err
}
