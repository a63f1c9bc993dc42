package store

import (
	"context"
	"fmt"
	"time"

	"github.com/assignment-tracker/apiserver/types"
)

// Unavailable stands in for both repositories when the store could not be
// reached at startup. Every call fails with ErrUnavailable wrapping the
// original cause.
type Unavailable struct {
	cause error
}

func NewUnavailable(cause error) *Unavailable {
	return &Unavailable{cause: cause}
}

func (u *Unavailable) err() error {
	return fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
}

func (u *Unavailable) Users() UnavailableUsers { return UnavailableUsers{u: u} }
func (u *Unavailable) Tasks() UnavailableTasks { return UnavailableTasks{u: u} }

type UnavailableUsers struct {
	u *Unavailable
}

type UnavailableTasks struct {
	u *Unavailable
}

func (r UnavailableUsers) GetByID(ctx context.Context, id string) (types.User, error) {
	return types.User{}, r.u.err()
}

func (r UnavailableUsers) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return types.User{}, r.u.err()
}

func (r UnavailableUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	return types.User{}, r.u.err()
}

func (t UnavailableTasks) List(ctx context.Context) ([]types.Task, error) {
	return nil, t.u.err()
}

func (t UnavailableTasks) Create(ctx context.Context, task types.Task) (types.Task, error) {
	return types.Task{}, t.u.err()
}

func (t UnavailableTasks) Update(ctx context.Context, id string, patch types.TaskPatch) (int64, error) {
	return 0, t.u.err()
}

func (t UnavailableTasks) Delete(ctx context.Context, id string) (int64, error) {
	return 0, t.u.err()
}

func (t UnavailableTasks) Toggle(ctx context.Context, id, updatedBy string, at time.Time) (types.Task, error) {
	return types.Task{}, t.u.err()
}

func (t UnavailableTasks) DeleteAll(ctx context.Context) (int64, error) {
	return 0, t.u.err()
}

func (t UnavailableTasks) InsertMany(ctx context.Context, tasks []types.Task) (int, error) {
	return 0, t.u.err()
}
