package apikey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// PostgresStore keeps key digests in the api_keys table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, key Key, digest string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, name, key_hash, user_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, key.ID, key.Name, digest, key.UserID, key.Active, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserByDigest(ctx context.Context, digest string) (model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := s.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.is_admin
		FROM api_keys k JOIN users u ON u.id = k.user_id
		WHERE k.key_hash=$1 AND k.active
	`, digest).Scan(&u.ID, &u.Name, &email, &u.Admin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("select api key: %w", err)
	}
	u.Email = email.String
	return u, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET active=FALSE WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s: %w", id, model.ErrNotFound)
	}
	return nil
}
