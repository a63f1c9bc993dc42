package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assignment-tracker/apiserver/internal/logging"
	"github.com/assignment-tracker/apiserver/types"
)

const (
	snapshotReasonSeed    = "seed"
	snapshotReasonCleanup = "cleanup"
)

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	List(ctx context.Context) ([]types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	// Update returns the modified count, or store.ErrNotFound when no task matched.
	Update(ctx context.Context, id string, patch types.TaskPatch) (int64, error)
	// Delete returns the deleted count, or store.ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id string) (int64, error)
	// Toggle atomically inverts completion and returns the updated task.
	Toggle(ctx context.Context, id, updatedBy string, at time.Time) (types.Task, error)
	DeleteAll(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, tasks []types.Task) (int, error)
}

// EventPublisher receives task lifecycle events.
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, event types.TaskEvent) error
}

// SnapshotSaver persists the task collection before it is wiped.
type SnapshotSaver interface {
	SaveTasks(ctx context.Context, reason, actor string, tasks []types.Task) (string, error)
}

// TaskService encapsulates task use-cases.
type TaskService struct {
	repo      TaskRepository
	events    EventPublisher
	snapshots SnapshotSaver
	log       *slog.Logger
	now       func() time.Time
}

// TaskServiceOption configures optional collaborators of a TaskService.
type TaskServiceOption func(*TaskService)

func WithEvents(events EventPublisher) TaskServiceOption {
	return func(s *TaskService) { s.events = events }
}

func WithSnapshots(snapshots SnapshotSaver) TaskServiceOption {
	return func(s *TaskService) { s.snapshots = snapshots }
}

func WithLogger(log *slog.Logger) TaskServiceOption {
	return func(s *TaskService) { s.log = log }
}

func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(repo TaskRepository, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		repo: repo,
		log:  logging.Discard(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleTasks returns the fixed seed set stamped with actor.
func SampleTasks(actor string, now time.Time) []types.Task {
	samples := []struct{ title, course string }{
		{"Create Mini App", "CIS-486"},
		{"Simulation Scenario D", "MG-395"},
		{"Read Chapters 7-8", "CIS-476"},
	}
	tasks := make([]types.Task, 0, len(samples))
	for _, sample := range samples {
		tasks = append(tasks, types.Task{
			Title:     sample.title,
			Course:    sample.course,
			Status:    types.TaskStatusPending,
			CreatedBy: actor,
			CreatedAt: now,
		})
	}
	return tasks
}

func (s *TaskService) List(ctx context.Context) ([]types.Task, error) {
	return s.repo.List(ctx)
}

func (s *TaskService) Create(ctx context.Context, title, course, actor string) (types.Task, error) {
	created, err := s.repo.Create(ctx, types.Task{
		Title:     title,
		Course:    course,
		Completed: false,
		Status:    types.TaskStatusPending,
		CreatedBy: actor,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return types.Task{}, err
	}
	s.publish(ctx, types.TaskEvent{Type: types.EventTaskCreated, Actor: actor, TaskID: created.ID})
	return created, nil
}

func (s *TaskService) Update(ctx context.Context, id string, title, course *string, actor string) (int64, error) {
	modified, err := s.repo.Update(ctx, id, types.TaskPatch{
		Title:     title,
		Course:    course,
		UpdatedBy: actor,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, types.TaskEvent{Type: types.EventTaskUpdated, Actor: actor, TaskID: id})
	return modified, nil
}

func (s *TaskService) Delete(ctx context.Context, id, actor string) (int64, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, types.TaskEvent{Type: types.EventTaskDeleted, Actor: actor, TaskID: id})
	return deleted, nil
}

func (s *TaskService) Toggle(ctx context.Context, id, actor string) (types.Task, error) {
	task, err := s.repo.Toggle(ctx, id, actor, s.now().UTC())
	if err != nil {
		return types.Task{}, err
	}
	completed := task.Completed
	s.publish(ctx, types.TaskEvent{Type: types.EventTaskToggled, Actor: actor, TaskID: id, Completed: &completed})
	return task, nil
}

// Seed replaces the whole collection with SampleTasks. The delete and the
// insert are separate writes; a failure in between leaves it empty.
func (s *TaskService) Seed(ctx context.Context, actor string) (int, error) {
	if err := s.snapshot(ctx, snapshotReasonSeed, actor); err != nil {
		return 0, err
	}
	if _, err := s.repo.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("clear tasks: %w", err)
	}
	inserted, err := s.repo.InsertMany(ctx, SampleTasks(actor, s.now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("insert sample tasks: %w", err)
	}
	s.publish(ctx, types.TaskEvent{Type: types.EventTasksSeeded, Actor: actor, Count: int64(inserted)})
	return inserted, nil
}

// Cleanup deletes every task.
func (s *TaskService) Cleanup(ctx context.Context, actor string) (int64, error) {
	if err := s.snapshot(ctx, snapshotReasonCleanup, actor); err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, types.TaskEvent{Type: types.EventTasksCleaned, Actor: actor, Count: deleted})
	return deleted, nil
}

// Restore inserts previously snapshotted tasks. Stores assign fresh ids.
func (s *TaskService) Restore(ctx context.Context, tasks []types.Task) (int, error) {
	restored := make([]types.Task, 0, len(tasks))
	for _, task := range tasks {
		task.ID = ""
		task.Status = types.StatusFor(task.Completed)
		restored = append(restored, task)
	}
	return s.repo.InsertMany(ctx, restored)
}

func (s *TaskService) snapshot(ctx context.Context, reason, actor string) error {
	if s.snapshots == nil {
		return nil
	}
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("snapshot tasks: %w", err)
	}
	key, err := s.snapshots.SaveTasks(ctx, reason, actor, tasks)
	if err != nil {
		return fmt.Errorf("snapshot tasks: %w", err)
	}
	s.log.InfoContext(ctx, "task snapshot saved", "key", key, "reason", reason, "tasks", len(tasks))
	return nil
}

func (s *TaskService) publish(ctx context.Context, event types.TaskEvent) {
	if s.events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = s.now().UTC()
	}
	if err := s.events.PublishTaskEvent(ctx, event); err != nil {
		s.log.WarnContext(ctx, "publish task event failed", "type", event.Type, "task_id", event.TaskID, "error", err)
	}
}
