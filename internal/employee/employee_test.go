package employee

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDuplicateWithoutKeysSkipsLookup(t *testing.T) {
	dir := NewMemoryDirectory(Employee{Name: "Someone"})

	dup, err := IsDuplicate(context.Background(), dir, "", "")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Zero(t, dir.Lookups())
}

func TestIsDuplicateMatchesEitherKey(t *testing.T) {
	dir := NewMemoryDirectory(Employee{
		Name:             "John Doe",
		WorkEmail:        OptionalString("john@x.com"),
		IdentificationID: OptionalString("ID1"),
	})
	ctx := context.Background()

	tests := []struct {
		name  string
		ident string
		email string
		want  bool
	}{
		{"id only", "ID1", "", true},
		{"email only", "", "john@x.com", true},
		{"id matches, email differs", "ID1", "other@x.com", true},
		{"email matches, id differs", "ID9", "john@x.com", true},
		{"neither matches", "ID9", "other@x.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, err := IsDuplicate(ctx, dir, tt.ident, tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dup)
		})
	}
}

func TestMemoryDirectoryEmptyKeyDoesNotMatchMissingField(t *testing.T) {
	dir := NewMemoryDirectory(Employee{Name: "No Keys"})
	dup, err := dir.Exists(context.Background(), Match{WorkEmail: "a@x.com"})
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMemoryDirectoryCreate(t *testing.T) {
	dir := NewMemoryDirectory()
	e, err := dir.Create(context.Background(), NewEmployee{Name: "Jane", WorkPhone: OptionalString("556")})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Nil(t, e.WorkEmail)
	require.Len(t, dir.All(), 1)

	_, err = dir.Create(context.Background(), NewEmployee{})
	assert.Error(t, err)
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString(""))
	require.NotNil(t, OptionalString("x"))
	assert.Equal(t, "x", *OptionalString("x"))
}
