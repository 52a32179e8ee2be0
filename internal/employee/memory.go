package employee

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory keeps employees in a slice guarded by a RWMutex. Used in tests.
type MemoryDirectory struct {
	mu        sync.RWMutex
	employees []Employee
	lookups   int
}

// NewMemoryDirectory constructs a MemoryDirectory seeded with existing entries.
func NewMemoryDirectory(seed ...Employee) *MemoryDirectory {
	return &MemoryDirectory{employees: append([]Employee(nil), seed...)}
}

// Exists implements Finder.
func (d *MemoryDirectory) Exists(_ context.Context, m Match) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	for _, e := range d.employees {
		if m.IdentificationID != "" && e.IdentificationID != nil && *e.IdentificationID == m.IdentificationID {
			return true, nil
		}
		if m.WorkEmail != "" && e.WorkEmail != nil && *e.WorkEmail == m.WorkEmail {
			return true, nil
		}
	}
	return false, nil
}

// Create implements Directory.
func (d *MemoryDirectory) Create(_ context.Context, in NewEmployee) (Employee, error) {
	if in.Name == "" {
		return Employee{}, errors.New("employee name is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e := Employee{
		ID:               uuid.NewString(),
		Name:             in.Name,
		WorkEmail:        in.WorkEmail,
		IdentificationID: in.IdentificationID,
		WorkPhone:        in.WorkPhone,
		CreatedAt:        time.Now().UTC(),
	}
	d.employees = append(d.employees, e)
	return e, nil
}

// All returns a copy of every stored employee in creation order.
func (d *MemoryDirectory) All() []Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Employee(nil), d.employees...)
}

// Lookups reports how many existence checks were made.
func (d *MemoryDirectory) Lookups() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookups
}
