package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/assignment-tracker/apiserver/internal/db"
	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/assignment-tracker/apiserver/internal/store"
)

// ErrUnknownStoreDriver is returned for a STORE_DRIVER value with no backend.
var ErrUnknownStoreDriver = errors.New("unknown store driver")

// Repositories bundles the user and task repositories of one backend
// together with the function that releases its connection.
type Repositories struct {
	Users services.UserRepository
	Tasks services.TaskRepository
	close func(ctx context.Context) error
}

// Close releases the backend connection, if any.
func (r Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// OpenRepositories connects to the backend selected by cfg.Store.Driver.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo, "":
		client, err := db.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return Repositories{}, fmt.Errorf("connect mongo: %w", err)
		}
		database := client.Database(cfg.Mongo.DBName)
		users := store.NewMongoUserRepository(database)
		tasks := store.NewMongoTaskRepository(database)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return Repositories{}, fmt.Errorf("ensure user indexes: %w", err)
		}
		if err := tasks.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return Repositories{}, fmt.Errorf("ensure task indexes: %w", err)
		}
		return Repositories{Users: users, Tasks: tasks, close: client.Disconnect}, nil

	case config.StoreDriverPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return Repositories{}, fmt.Errorf("connect postgres: %w", err)
		}
		return Repositories{
			Users: store.NewPostgresUserRepository(conn),
			Tasks: store.NewPostgresTaskRepository(conn),
			close: func(context.Context) error { return conn.Close() },
		}, nil

	case config.StoreDriverMemory:
		memory := store.NewMemory()
		return Repositories{Users: memory.Users(), Tasks: memory.Tasks()}, nil

	default:
		return Repositories{}, fmt.Errorf("%w %q", ErrUnknownStoreDriver, cfg.Store.Driver)
	}
}

// unavailableRepositories answers every call with store.ErrUnavailable.
func unavailableRepositories(cause error) Repositories {
	u := store.NewUnavailable(cause)
	return Repositories{Users: u.Users(), Tasks: u.Tasks()}
}
