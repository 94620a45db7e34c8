// Package mongo implements the service.Backend interface on a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskmaster/internal/config"
	"taskmaster/internal/service"
)

// APITimeout is the timeout for database calls.
const APITimeout = 5 * time.Second

// document is a task as stored in the collection.
type document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Priority    string             `bson:"priority"`
	Completed   bool               `bson:"completed"`
	UserID      string             `bson:"user_id"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d document) task() service.Task {
	return service.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    service.Priority(d.Priority),
		Completed:   d.Completed,
		OwnerID:     d.UserID,
		CreatedAt:   d.CreatedAt,
	}
}

func newDocument(t service.NewTask, now time.Time) document {
	return document{
		ID:          primitive.NewObjectID(),
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Completed:   t.Completed,
		UserID:      t.OwnerID,
		CreatedAt:   now.UTC().Truncate(time.Millisecond),
	}
}

// updateDocument builds the $set update for a patch.
func updateDocument(p service.Patch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}
	return bson.M{"$set": set}
}

// Client implements service.Backend against MongoDB.
// Every query is filtered by the configured user id.
type Client struct {
	client *mongo.Client
	tasks  *mongo.Collection
	user   service.Identity
	now    func() time.Time
}

// New connects to mongo.uri and opens mongo.database/mongo.collection.
// Requires user.id to be configured.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Mongo.URI == "" {
		return nil, errors.New("mongo.uri must be configured")
	}
	if cfg.User.ID == "" {
		return nil, errors.New("user.id must be configured for the mongo backend")
	}
	return Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection,
		service.Identity{UserID: cfg.User.ID, Email: cfg.User.Email})
}

// Connect connects to uri and ensures the listing index exists.
func Connect(ctx context.Context, uri, database, collection string, user service.Identity) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		mc.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", wrapError(err))
	}

	c := &Client{
		client: mc,
		tasks:  mc.Database(database).Collection(collection),
		user:   user,
		now:    time.Now,
	}
	_, err = c.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		mc.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", wrapError(err))
	}
	return c, nil
}

// Close disconnects from the server.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// ListTasks returns the user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := c.tasks.Find(ctx, bson.M{"user_id": c.user.UserID}, opts)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	tasks := []service.Task{}
	for cursor.Next(ctx) {
		var d document
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = append(tasks, d.task())
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapError(err)
	}
	return tasks, nil
}

// InsertTask inserts one document and returns it as stored.
func (c *Client) InsertTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	if task.OwnerID != c.user.UserID {
		return service.Task{}, fmt.Errorf("cannot create a task for user %q", task.OwnerID)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	d := newDocument(task, c.now())
	if _, err := c.tasks.InsertOne(ctx, d); err != nil {
		return service.Task{}, wrapError(err)
	}
	return d.task(), nil
}

// UpdateTask sets the patched fields of the user's task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) error {
	if patch.IsEmpty() {
		return nil
	}
	filter, err := c.ownedBy(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	res, err := c.tasks.UpdateOne(ctx, filter, updateDocument(patch))
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return service.ErrNotFound
	}
	return nil
}

// DeleteTask deletes the user's task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	filter, err := c.ownedBy(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	res, err := c.tasks.DeleteOne(ctx, filter)
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return service.ErrNotFound
	}
	return nil
}

// CurrentUser returns the configured identity.
func (c *Client) CurrentUser(ctx context.Context) (service.Identity, error) {
	return c.user, nil
}

// SignOut disconnects from the server. The configured identity stays in config.yaml.
func (c *Client) SignOut(ctx context.Context) error {
	return c.Close(ctx)
}

// ownedBy builds the filter for the user's task with the given hex id.
// Ids that are not ObjectIDs cannot exist in the collection.
func (c *Client) ownedBy(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, service.ErrNotFound
	}
	return bson.M{"_id": oid, "user_id": c.user.UserID}, nil
}

// wrapError wraps driver errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return fmt.Errorf("request timed out")
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return service.ErrNotFound
	}
	if mongo.IsNetworkError(err) {
		return fmt.Errorf("mongo unreachable: %w", err)
	}
	return err
}
