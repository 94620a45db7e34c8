package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"

	"taskmaster/internal/backend/breaker"
	"taskmaster/internal/service"
	"taskmaster/internal/testutil"
)

func newBreaker(t *testing.T, svc *testutil.FakeService, timeout time.Duration) (*breaker.Backend, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return breaker.Wrap(svc, breaker.Settings{MaxFailures: 2, Timeout: timeout, Logger: log}), hook
}

func TestBreaker_PassesThrough(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("t1", "Buy milk", service.PriorityLow, false)
	b, _ := newBreaker(t, svc, time.Minute)

	tasks, err := b.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Errorf("unexpected tasks %+v", tasks)
	}
	created, err := b.InsertTask(context.Background(), service.NewTask{Title: "x", Priority: service.PriorityLow, OwnerID: testutil.DefaultUser.UserID})
	if err != nil || created.ID == "" {
		t.Errorf("unexpected insert result %+v, %v", created, err)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = errors.New("connection refused")
	b, hook := newBreaker(t, svc, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := b.ListTasks(ctx); err == nil || errors.Is(err, breaker.ErrUnavailable) {
			t.Fatalf("call %d: expected the store error, got %v", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	_, err := b.ListTasks(ctx)
	if !errors.Is(err, breaker.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if svc.Calls("ListTasks") != 2 {
		t.Errorf("open breaker should not reach the store, got %d calls", svc.Calls("ListTasks"))
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("expected a state change warning")
	}
}

func TestBreaker_NotFoundIsNotAFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	b, _ := newBreaker(t, svc, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.DeleteTask(context.Background(), "missing"); !errors.Is(err, service.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", b.State())
	}
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.UpdateTaskErr = errors.New("boom")
	b, _ := newBreaker(t, svc, 20*time.Millisecond)
	ctx := context.Background()

	b.UpdateTask(ctx, "t1", service.CompletedPatch(true))
	b.UpdateTask(ctx, "t1", service.CompletedPatch(true))
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	time.Sleep(40 * time.Millisecond)
	svc.UpdateTaskErr = nil
	svc.AddTask("t1", "Buy milk", service.PriorityLow, false)

	if err := b.UpdateTask(ctx, "t1", service.CompletedPatch(true)); err != nil {
		t.Fatalf("expected the half-open trial call to succeed, got %v", err)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", b.State())
	}
}

func TestBreaker_AuthPassesThrough(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CurrentUserErr = errors.New("expired")
	b, _ := newBreaker(t, svc, time.Minute)

	for i := 0; i < 5; i++ {
		b.CurrentUser(context.Background())
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("sign-in errors should not trip the breaker, got %s", b.State())
	}
}
