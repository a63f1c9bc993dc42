package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/assignment-tracker/apiserver/types"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// PostgresUserRepository handles persistence for users in Postgres.
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	pk, err := parseSerialID(id)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, pk))
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	var pk int64
	if err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt).Scan(&pk); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	user.ID = strconv.FormatInt(pk, 10)
	return user, nil
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var pk int64
	err := row.Scan(&pk, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.ID = strconv.FormatInt(pk, 10)
	return user, nil
}

func parseSerialID(id string) (int64, error) {
	pk, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || pk < 1 {
		return 0, ErrInvalidID
	}
	return pk, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
