package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/assignment-tracker/apiserver/types"
)

const snapshotPrefix = "snapshots/"

// TaskSnapshot is the JSON document written before destructive operations.
type TaskSnapshot struct {
	Reason  string       `json:"reason"`
	Actor   string       `json:"actor"`
	TakenAt time.Time    `json:"takenAt"`
	Tasks   []types.Task `json:"tasks"`
}

// SnapshotStore persists task snapshots as objects under snapshots/.
type SnapshotStore struct {
	storage *Storage
	now     func() time.Time
}

func NewSnapshotStore(s *Storage) *SnapshotStore {
	return &SnapshotStore{storage: s, now: time.Now}
}

// SaveTasks uploads a snapshot and returns its object key.
func (s *SnapshotStore) SaveTasks(ctx context.Context, reason, actor string, tasks []types.Task) (string, error) {
	takenAt := s.now().UTC()
	if tasks == nil {
		tasks = []types.Task{}
	}
	data, err := json.Marshal(TaskSnapshot{
		Reason:  reason,
		Actor:   actor,
		TakenAt: takenAt,
		Tasks:   tasks,
	})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%stasks-%s-%d.json", snapshotPrefix, reason, takenAt.UnixNano())
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// LoadTasks downloads and decodes the snapshot stored at key.
func (s *SnapshotStore) LoadTasks(ctx context.Context, key string) (TaskSnapshot, error) {
	r, err := s.storage.Get(ctx, key)
	if err != nil {
		return TaskSnapshot{}, err
	}
	defer r.Close()

	var snapshot TaskSnapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return TaskSnapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snapshot, nil
}
