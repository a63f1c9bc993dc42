package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/assignment-tracker/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is a process-local store for development and tests. It issues
// ObjectID-style identifiers so id validation matches the Mongo backend.
type Memory struct {
	mu      sync.Mutex
	users   map[string]types.User
	byName  map[string]string
	tasks   map[string]memoryTask
	nextSeq int64
}

type memoryTask struct {
	task types.Task
	seq  int64
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]types.User),
		byName: make(map[string]string),
		tasks:  make(map[string]memoryTask),
	}
}

// MemoryUserRepository exposes the users half of a Memory store.
type MemoryUserRepository struct{ m *Memory }

// MemoryTaskRepository exposes the tasks half of a Memory store.
type MemoryTaskRepository struct{ m *Memory }

func (m *Memory) Users() *MemoryUserRepository { return &MemoryUserRepository{m: m} }
func (m *Memory) Tasks() *MemoryTaskRepository { return &MemoryTaskRepository{m: m} }

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.User{}, ErrInvalidID
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user, ok := r.m.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	id, ok := r.m.byName[username]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return r.m.users[id], nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.byName[user.Username]; exists {
		return types.User{}, ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.ID = primitive.NewObjectID().Hex()
	r.m.users[user.ID] = user
	r.m.byName[user.Username] = user.ID
	return user, nil
}

func (r *MemoryTaskRepository) List(ctx context.Context) ([]types.Task, error) {
	r.m.mu.Lock()
	entries := make([]memoryTask, 0, len(r.m.tasks))
	for _, entry := range r.m.tasks {
		entries = append(entries, entry)
	}
	r.m.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]types.Task, 0, len(entries))
	for _, entry := range entries {
		tasks = append(tasks, entry.task)
	}
	return tasks, nil
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.insertLocked(task), nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, id string, patch types.TaskPatch) (int64, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return 0, ErrInvalidID
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	entry, ok := r.m.tasks[id]
	if !ok {
		return 0, ErrNotFound
	}
	if patch.Title != nil {
		entry.task.Title = *patch.Title
	}
	if patch.Course != nil {
		entry.task.Course = *patch.Course
	}
	at := patch.UpdatedAt
	entry.task.UpdatedBy = patch.UpdatedBy
	entry.task.UpdatedAt = &at
	r.m.tasks[id] = entry
	return 1, nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, id string) (int64, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return 0, ErrInvalidID
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.tasks[id]; !ok {
		return 0, ErrNotFound
	}
	delete(r.m.tasks, id)
	return 1, nil
}

func (r *MemoryTaskRepository) Toggle(ctx context.Context, id, updatedBy string, at time.Time) (types.Task, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.Task{}, ErrInvalidID
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	entry, ok := r.m.tasks[id]
	if !ok {
		return types.Task{}, ErrNotFound
	}
	entry.task.Completed = !entry.task.Completed
	entry.task.Status = types.StatusFor(entry.task.Completed)
	entry.task.UpdatedBy = updatedBy
	entry.task.UpdatedAt = &at
	r.m.tasks[id] = entry
	return entry.task, nil
}

func (r *MemoryTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	deleted := int64(len(r.m.tasks))
	r.m.tasks = make(map[string]memoryTask)
	return deleted, nil
}

func (r *MemoryTaskRepository) InsertMany(ctx context.Context, tasks []types.Task) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, task := range tasks {
		r.insertLocked(task)
	}
	return len(tasks), nil
}

func (r *MemoryTaskRepository) insertLocked(task types.Task) types.Task {
	r.m.nextSeq++
	task.ID = primitive.NewObjectID().Hex()
	task.Status = types.StatusFor(task.Completed)
	r.m.tasks[task.ID] = memoryTask{task: task, seq: r.m.nextSeq}
	return task
}
