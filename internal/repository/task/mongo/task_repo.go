package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	defaultDatabase   = "taskmanager"
	defaultCollection = "tasks"
	slowOperation     = 100 * time.Millisecond
)

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) toTask() *task.Task {
	return &task.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      task.Status(d.Status),
		Priority:    task.Priority(d.Priority),
		DueDate:     d.DueDate,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type Storage struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to the deployment named by uri. The database is taken from the
// URI path and falls back to "taskmanager".
func New(ctx context.Context, uri, collection string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("Repository: failed to create mongo client", err)
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	if collection == "" {
		collection = defaultCollection
	}
	database := databaseFromURI(uri)

	logger.Info("Repository: connected to MongoDB",
		zap.String("database", database),
		zap.String("collection", collection))

	return &Storage{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *Storage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		logger.Error("Repository: disconnect failed", err)
		return
	}
	logger.Info("Repository: MongoDB connection closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Migrate creates the indexes backing list filters and ordering.
func (s *Storage) Migrate(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	names, err := s.collection.Indexes().CreateMany(ctx, models)
	if err != nil {
		logger.Error("Repository: failed to create indexes", err)
		return fmt.Errorf("create indexes: %w", err)
	}

	logger.Info("Repository: indexes ensured", zap.Strings("indexes", names))
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) (*task.Task, error) {
	start := time.Now()

	t := *taskToCreate
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return nil, repo.Wrap(repo.OpCreate, err)
	}

	now := storedTime(time.Now())
	doc := taskDocument{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     storedTimePtr(t.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpCreate, err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, repo.Wrap(repo.OpCreate, fmt.Errorf("unexpected inserted id %v", res.InsertedID))
	}
	doc.ID = id

	warnIfSlow(start, "create")
	return doc.toTask(), nil
}

func (s *Storage) FindAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cur, err := s.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpList, err)
	}

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		logger.Error("Repository: cursor decode failed", err)
		return nil, repo.Wrap(repo.OpList, err)
	}

	tasks := make([]*task.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toTask())
	}

	warnIfSlow(start, "find_all")
	return tasks, nil
}

func (s *Storage) FindByID(ctx context.Context, id string) (*task.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repo.Wrap(repo.OpFetch, repo.ErrNotFound)
	}

	var doc taskDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, repo.Wrap(repo.OpFetch, notFound(err))
	}
	return doc.toTask(), nil
}

func (s *Storage) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	start := time.Now()

	if err := patch.Validate(); err != nil {
		return nil, repo.Wrap(repo.OpUpdate, err)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repo.Wrap(repo.OpUpdate, repo.ErrNotFound)
	}

	set := bson.M{"updatedAt": storedTime(time.Now())}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.DueDate != nil {
		set["dueDate"] = storedTime(*patch.DueDate)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		}
		return nil, repo.Wrap(repo.OpUpdate, notFound(err))
	}

	warnIfSlow(start, "update")
	return doc.toTask(), nil
}

func (s *Storage) Delete(ctx context.Context, id string) (*task.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repo.Wrap(repo.OpDelete, repo.ErrNotFound)
	}

	var doc taskDocument
	if err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, repo.Wrap(repo.OpDelete, notFound(err))
	}
	return doc.toTask(), nil
}

func (s *Storage) Count(ctx context.Context, filter task.Filter) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		logger.Error("Repository: failed to count tasks", err)
		return 0, repo.Wrap(repo.OpCount, err)
	}
	return n, nil
}

func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.D{})
	if err != nil {
		logger.Error("Repository: failed to delete all tasks", err)
		return 0, repo.Wrap(repo.OpDeleteAll, err)
	}
	return res.DeletedCount, nil
}

func filterDocument(filter task.Filter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		query["priority"] = string(filter.Priority)
	}
	return query
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repo.ErrNotFound
	}
	return err
}

// storedTime matches the millisecond UTC precision BSON dates round-trip with.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func storedTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	st := storedTime(*t)
	return &st
}

func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db
	}
	return defaultDatabase
}

func warnIfSlow(start time.Time, op string) {
	if elapsed := time.Since(start); elapsed > slowOperation {
		logger.Warn("Repository: slow operation", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
