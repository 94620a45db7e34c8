package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

func TestDocument_RoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 123456789, time.UTC)
	d := newDocument(service.NewTask{
		Title:       "Buy milk",
		Description: "2 litres",
		Priority:    service.PriorityHigh,
		OwnerID:     "user-1",
	}, now)

	raw, err := bson.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back document
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	task := back.task()
	if task.ID != d.ID.Hex() || len(task.ID) != 24 {
		t.Errorf("expected hex object id, got %q", task.ID)
	}
	if task.Title != "Buy milk" || task.Description != "2 litres" || task.Priority != service.PriorityHigh {
		t.Errorf("unexpected task %+v", task)
	}
	if task.OwnerID != "user-1" || task.Completed {
		t.Errorf("unexpected owner or completed: %+v", task)
	}
	if !task.CreatedAt.Equal(now.Truncate(time.Millisecond)) {
		t.Errorf("expected created_at %v, got %v", now.Truncate(time.Millisecond), task.CreatedAt)
	}
}

func TestUpdateDocument_OnlySetFields(t *testing.T) {
	title := "New"
	prio := service.PriorityLow

	got := updateDocument(service.Patch{Title: &title, Priority: &prio})
	set, ok := got["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected $set document, got %v", got)
	}
	if len(set) != 2 || set["title"] != "New" || set["priority"] != "low" {
		t.Errorf("unexpected $set %v", set)
	}

	got = updateDocument(service.CompletedPatch(false))
	set = got["$set"].(bson.M)
	if len(set) != 1 || set["completed"] != false {
		t.Errorf("expected only completed=false, got %v", set)
	}
}

func TestOwnedBy(t *testing.T) {
	c := &Client{user: service.Identity{UserID: "user-1"}}

	if _, err := c.ownedBy("not-hex"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a malformed id, got %v", err)
	}

	oid := primitive.NewObjectID()
	filter, err := c.ownedBy(oid.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter["_id"] != oid || filter["user_id"] != "user-1" {
		t.Errorf("unexpected filter %v", filter)
	}
}

func TestNew_RequiresSettings(t *testing.T) {
	cfg, _ := config.New(t.TempDir())
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error without mongo.uri")
	}
	cfg.Mongo.URI = "mongodb://localhost:27017"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error without user.id")
	}
}

// TestClient_Lifecycle runs against a live server when TASKMASTER_TEST_MONGO_URI is set.
func TestClient_Lifecycle(t *testing.T) {
	uri := os.Getenv("TASKMASTER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TASKMASTER_TEST_MONGO_URI not set, skipping MongoDB integration test")
	}
	ctx := context.Background()
	user := service.Identity{UserID: "user-" + primitive.NewObjectID().Hex()}

	c, err := Connect(ctx, uri, "taskmaster_test", "tasks", user)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close(ctx)

	first, err := c.InsertTask(ctx, service.NewTask{Title: "First", Priority: service.PriorityLow, OwnerID: user.UserID})
	if err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := c.InsertTask(ctx, service.NewTask{Title: "Second", Priority: service.PriorityHigh, OwnerID: user.UserID})
	if err != nil {
		t.Fatalf("InsertTask: %v", err)
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != second.ID || tasks[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", tasks)
	}

	if err := c.UpdateTask(ctx, first.ID, service.CompletedPatch(true)); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := c.DeleteTask(ctx, second.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := c.DeleteTask(ctx, second.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	tasks, _ = c.ListTasks(ctx)
	if len(tasks) != 1 || !tasks[0].Completed {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}
