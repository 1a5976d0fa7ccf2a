// Package repository provides persistence implementations for users and
// their contacts, backed either by PostgreSQL or by process memory.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/ContactKeeper/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresUserRepository implements user persistence using a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// FindUserByEmail returns the user registered under email.
// It returns models.ErrNotFound if there is none.
func (r *PostgresUserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, email, hashed_password, is_active FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row)
}

// FindUserByID returns the user with the given id.
// It returns models.ErrNotFound if there is none.
func (r *PostgresUserRepository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, email, hashed_password, is_active FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// CreateUser inserts an active user with an already hashed password.
// A duplicate email yields models.ErrEmailTaken.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, hashed_password) VALUES ($1, $2)
		 RETURNING id, email, hashed_password, is_active`,
		email, hashedPassword,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUser applies the non-nil fields of upd to the user and returns the
// updated row. It returns models.ErrNotFound if the user does not exist and
// models.ErrEmailTaken if the new email belongs to someone else.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	var (
		email    sql.NullString
		password sql.NullString
		active   sql.NullBool
	)
	if upd.Email != nil {
		email = sql.NullString{String: *upd.Email, Valid: true}
	}
	if upd.HashedPassword != nil {
		password = sql.NullString{String: *upd.HashedPassword, Valid: true}
	}
	if upd.IsActive != nil {
		active = sql.NullBool{Bool: *upd.IsActive, Valid: true}
	}

	row := r.DB.QueryRowContext(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			hashed_password = COALESCE($3, hashed_password),
			is_active = COALESCE($4, is_active)
		WHERE id = $1
		RETURNING id, email, hashed_password, is_active
	`, id, email, password, active)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user and, through the foreign key, their contacts.
// It returns models.ErrNotFound if no row was deleted.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.IsActive); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// mapError translates driver errors into the model's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrEmailTaken
	}
	return err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
