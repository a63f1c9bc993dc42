package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/assignment-tracker/apiserver/types"
)

const taskColumns = `id, title, course, completed, status, created_by, created_at, updated_by, updated_at`

// PostgresTaskRepository handles persistence for tasks in Postgres.
type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresTaskRepository) List(ctx context.Context) ([]types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	const query = `
		INSERT INTO tasks (title, course, completed, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var pk int64
	if err := r.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Course,
		task.Completed,
		types.StatusFor(task.Completed),
		task.CreatedBy,
		task.CreatedAt,
	).Scan(&pk); err != nil {
		return types.Task{}, err
	}
	task.ID = strconv.FormatInt(pk, 10)
	task.Status = types.StatusFor(task.Completed)
	return task, nil
}

func (r *PostgresTaskRepository) Update(ctx context.Context, id string, patch types.TaskPatch) (int64, error) {
	pk, err := parseSerialID(id)
	if err != nil {
		return 0, err
	}

	const query = `
		UPDATE tasks
		SET title = COALESCE($1, title),
			course = COALESCE($2, course),
			updated_by = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		nullString(patch.Title),
		nullString(patch.Course),
		patch.UpdatedBy,
		patch.UpdatedAt,
		pk,
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrNotFound
	}
	return affected, nil
}

func (r *PostgresTaskRepository) Delete(ctx context.Context, id string) (int64, error) {
	pk, err := parseSerialID(id)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, pk)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrNotFound
	}
	return affected, nil
}

// Toggle flips completion in a single statement. The SET expressions see
// the pre-update row, so status is derived from the old completed value.
func (r *PostgresTaskRepository) Toggle(ctx context.Context, id, updatedBy string, at time.Time) (types.Task, error) {
	pk, err := parseSerialID(id)
	if err != nil {
		return types.Task{}, err
	}

	query := `
		UPDATE tasks
		SET completed = NOT completed,
			status = CASE WHEN completed THEN '` + types.TaskStatusPending + `' ELSE '` + types.TaskStatusCompleted + `' END,
			updated_by = $2,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + taskColumns
	task, err := scanTask(r.db.QueryRowContext(ctx, query, pk, updatedBy, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *PostgresTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PostgresTaskRepository) InsertMany(ctx context.Context, tasks []types.Task) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (title, course, completed, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, task := range tasks {
		if _, err := stmt.ExecContext(
			ctx,
			task.Title,
			task.Course,
			task.Completed,
			types.StatusFor(task.Completed),
			task.CreatedBy,
			task.CreatedAt,
		); err != nil {
			return 0, fmt.Errorf("insert task %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func scanTask(row rowScanner) (types.Task, error) {
	var task types.Task
	var pk int64
	var updatedBy sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(
		&pk,
		&task.Title,
		&task.Course,
		&task.Completed,
		&task.Status,
		&task.CreatedBy,
		&task.CreatedAt,
		&updatedBy,
		&updatedAt,
	); err != nil {
		return types.Task{}, err
	}
	task.ID = strconv.FormatInt(pk, 10)
	task.UpdatedBy = updatedBy.String
	if updatedAt.Valid {
		at := updatedAt.Time
		task.UpdatedAt = &at
	}
	return task, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
