package store

import (
	"context"
	"errors"
	"time"

	"github.com/assignment-tracker/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type taskDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Course    string             `bson:"course"`
	Completed bool               `bson:"completed"`
	Status    string             `bson:"status"`
	CreatedBy string             `bson:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedBy string             `bson:"updatedBy,omitempty"`
	UpdatedAt *time.Time         `bson:"updatedAt,omitempty"`
}

func newTaskDocument(task types.Task) taskDocument {
	return taskDocument{
		Title:     task.Title,
		Course:    task.Course,
		Completed: task.Completed,
		Status:    types.StatusFor(task.Completed),
		CreatedBy: task.CreatedBy,
		CreatedAt: task.CreatedAt,
	}
}

func (d taskDocument) toTask() types.Task {
	status := d.Status
	// Documents written by older seed scripts carry no status.
	if status == "" {
		status = types.StatusFor(d.Completed)
	}
	return types.Task{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Course:    d.Course,
		Completed: d.Completed,
		Status:    status,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedBy: d.UpdatedBy,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoTaskRepository handles persistence for tasks in MongoDB.
type MongoTaskRepository struct {
	coll *mongo.Collection
}

func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(TasksCollection)}
}

// EnsureIndexes creates the index backing the newest-first listing.
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("created_at_desc"),
	})
	return err
}

func (r *MongoTaskRepository) List(ctx context.Context) ([]types.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]types.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, doc.toTask())
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	result, err := r.coll.InsertOne(ctx, newTaskDocument(task))
	if err != nil {
		return types.Task{}, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		task.ID = oid.Hex()
	}
	task.Status = types.StatusFor(task.Completed)
	return task, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, id string, patch types.TaskPatch) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrInvalidID
	}

	set := bson.M{
		"updatedBy": patch.UpdatedBy,
		"updatedAt": patch.UpdatedAt,
	}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Course != nil {
		set["course"] = *patch.Course
	}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	if result.MatchedCount == 0 {
		return 0, ErrNotFound
	}
	return result.ModifiedCount, nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrInvalidID
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, err
	}
	if result.DeletedCount == 0 {
		return 0, ErrNotFound
	}
	return result.DeletedCount, nil
}

// Toggle inverts completed and derives status with one findAndModify
// using an update pipeline, so concurrent toggles serialize on the document.
func (r *MongoTaskRepository) Toggle(ctx context.Context, id, updatedBy string, at time.Time) (types.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Task{}, ErrInvalidID
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				"$completed",
				types.TaskStatusCompleted,
				types.TaskStatusPending,
			}}}},
			// $literal keeps usernames starting with "$" from being read as field paths.
			{Key: "updatedBy", Value: bson.D{{Key: "$literal", Value: updatedBy}}},
			{Key: "updatedAt", Value: at},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return doc.toTask(), nil
}

func (r *MongoTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *MongoTaskRepository) InsertMany(ctx context.Context, tasks []types.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	docs := make([]any, 0, len(tasks))
	for _, task := range tasks {
		docs = append(docs, newTaskDocument(task))
	}
	result, err := r.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(result.InsertedIDs), nil
}
