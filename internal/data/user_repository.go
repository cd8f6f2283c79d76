package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UserRepository handles database operations for user accounts.
type UserRepository struct {
	DB *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, username, first_name, last_name, email, password_hash, external_id, created_at`

func (r *UserRepository) getOne(ctx context.Context, where string, arg interface{}) (*User, error) {
	var user User
	if err := r.DB.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE "+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByID finds a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByUsername finds a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username = ?", username)
}

// GetByExternalID finds the account bound to an external identity.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	return r.getOne(ctx, "external_id = ?", externalID)
}

// ExistsByUsername reports whether the username is already taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	if err := r.DB.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE username = ?", username); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, first_name, last_name, email, password_hash, external_id, created_at)
		VALUES (:username, :first_name, :last_name, :email, :password_hash, :external_id, :created_at)`
	res, err := r.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get new user id: %w", err)
	}
	user.ID = id
	return nil
}

// UpdateProfile saves the personal details of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *User) error {
	query := `UPDATE users SET first_name = :first_name, last_name = :last_name, email = :email WHERE id = :id`
	res, err := r.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return expectAffected(res, "user", user.ID)
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectAffected(res, "user", id)
}

// Delete removes a user; their posts and comments are removed by cascade.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectAffected(res, "user", id)
}
