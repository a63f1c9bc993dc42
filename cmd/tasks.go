/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/assignment-tracker/apiserver/internal/logging"
	"github.com/assignment-tracker/apiserver/internal/mq"
	"github.com/assignment-tracker/apiserver/internal/server"
	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/assignment-tracker/apiserver/internal/storage"
	"github.com/assignment-tracker/apiserver/types"
	"github.com/spf13/cobra"
)

var actor string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace every assignment with the sample set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskService(cmd.Context(), func(ctx context.Context, svc *services.TaskService, _ *storage.SnapshotStore) error {
			inserted, err := svc.Seed(ctx, actor)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			tasks, err := svc.List(ctx)
			if err != nil {
				return fmt.Errorf("list seeded assignments: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d assignments\n", inserted)
			return printJSON(cmd, tasks)
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete every assignment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskService(cmd.Context(), func(ctx context.Context, svc *services.TaskService, _ *storage.SnapshotStore) error {
			deleted, err := svc.Cleanup(ctx, actor)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d assignments\n", deleted)
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-key>",
	Short: "Insert the assignments stored in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskService(cmd.Context(), func(ctx context.Context, svc *services.TaskService, snapshots *storage.SnapshotStore) error {
			if snapshots == nil {
				return errors.New("restore needs STORAGE_BACKEND to be set")
			}
			snapshot, err := snapshots.LoadTasks(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			inserted, err := svc.Restore(ctx, snapshot.Tasks)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d assignments from %s snapshot taken %s\n",
				inserted, snapshot.Reason, snapshot.TakenAt.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Log task events from the message broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(os.Stderr, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open broker: %w", err)
		}
		if broker == nil {
			return errors.New("events needs MQ_BACKEND to be set")
		}
		defer broker.Close()

		events := mq.NewTaskEventPublisher(broker, cfg.MQ.TaskEventsChannel)
		log.Info("listening for task events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.TaskEventsChannel)
		err = events.SubscribeTaskEvents(ctx, func(ctx context.Context, event types.TaskEvent) error {
			log.InfoContext(ctx, "task event",
				"type", event.Type,
				"actor", event.Actor,
				"task_id", event.TaskID,
				"count", event.Count,
				"at", event.At,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// withTaskService opens the configured store, plus snapshot storage and the
// event broker when they are configured, and runs fn against them.
func withTaskService(ctx context.Context, fn func(context.Context, *services.TaskService, *storage.SnapshotStore) error) error {
	cfg := config.LoadConfig()
	log := logging.New(os.Stderr, cfg.LogLevel)

	repos, err := server.OpenRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close(context.Background())

	opts := []services.TaskServiceOption{services.WithLogger(log)}

	var snapshots *storage.SnapshotStore
	objects, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open snapshot storage: %w", err)
	}
	if objects != nil {
		snapshots = storage.NewSnapshotStore(objects)
		opts = append(opts, services.WithSnapshots(snapshots))
	}

	broker, err := mq.Open(ctx, cfg)
	if err != nil {
		log.Warn("task events disabled", "error", err)
	} else if broker != nil {
		defer broker.Close()
		opts = append(opts, services.WithEvents(mq.NewTaskEventPublisher(broker, cfg.MQ.TaskEventsChannel)))
	}

	return fn(ctx, services.NewTaskService(repos.Tasks, opts...), snapshots)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{seedCmd, cleanupCmd} {
		c.Flags().StringVar(&actor, "actor", "admin", "username recorded as the author of the change")
	}
	rootCmd.AddCommand(seedCmd, cleanupCmd, restoreCmd, eventsCmd)
}

