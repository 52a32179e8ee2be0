package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// UserRepository stores the identities that own jobs and API keys.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	var email *string
	if u.Email != "" {
		email = &u.Email
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, is_admin) VALUES ($1,$2,$3,$4)
	`, u.ID, u.Name, email, u.Admin)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, is_admin FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &email, &u.Admin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
		}
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Email = email.String
	return u, nil
}
