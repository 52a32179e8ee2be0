package employee

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL-backed directory.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Exists runs an existence query; only the keys present in m take part in the
// predicate, so an empty email never matches employees without one.
func (s *Store) Exists(ctx context.Context, m Match) (bool, error) {
	if m.Empty() {
		return false, nil
	}
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM employees
			WHERE ($1 <> '' AND identification_id = $1)
			   OR ($2 <> '' AND work_email = $2)
			LIMIT 1
		)
	`, m.IdentificationID, m.WorkEmail).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup employee: %w", err)
	}
	return exists, nil
}

// Create inserts a new employee.
func (s *Store) Create(ctx context.Context, in NewEmployee) (Employee, error) {
	e := Employee{
		ID:               uuid.NewString(),
		Name:             in.Name,
		WorkEmail:        in.WorkEmail,
		IdentificationID: in.IdentificationID,
		WorkPhone:        in.WorkPhone,
		CreatedAt:        time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, work_email, identification_id, work_phone, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.Name, e.WorkEmail, e.IdentificationID, e.WorkPhone, e.CreatedAt)
	if err != nil {
		return Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	return e, nil
}
