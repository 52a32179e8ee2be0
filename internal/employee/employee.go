// Package employee is the employee directory used by the import pipeline:
// existence checks on natural keys and creation of new employees. Existing
// employees are never updated or deleted from here.
package employee

import (
	"context"
	"time"
)

// Employee is one directory entry. Optional attributes are nil when empty.
type Employee struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	WorkEmail        *string   `json:"workEmail,omitempty"`
	IdentificationID *string   `json:"identificationId,omitempty"`
	WorkPhone        *string   `json:"workPhone,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewEmployee is the input for Create.
type NewEmployee struct {
	Name             string
	WorkEmail        *string
	IdentificationID *string
	WorkPhone        *string
}

// Match describes a natural-key lookup. Empty fields are not part of the
// predicate; an employee matches when any provided key is equal.
type Match struct {
	IdentificationID string
	WorkEmail        string
}

// Empty reports whether no natural key was provided.
func (m Match) Empty() bool {
	return m.IdentificationID == "" && m.WorkEmail == ""
}

// Finder answers existence checks against the directory.
type Finder interface {
	Exists(ctx context.Context, m Match) (bool, error)
}

// Directory is the full capability the row processor needs.
type Directory interface {
	Finder
	Create(ctx context.Context, in NewEmployee) (Employee, error)
}

// IsDuplicate reports whether an employee with the same identification id or
// work email already exists. Rows carrying neither key are never treated as
// duplicates and no lookup is made for them.
func IsDuplicate(ctx context.Context, f Finder, identificationID, workEmail string) (bool, error) {
	m := Match{IdentificationID: identificationID, WorkEmail: workEmail}
	if m.Empty() {
		return false, nil
	}
	return f.Exists(ctx, m)
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
