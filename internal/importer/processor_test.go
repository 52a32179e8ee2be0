package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/staffdrop/internal/employee"
	"github.com/dharsanguruparan/staffdrop/internal/spreadsheet"
)

var fullHeader = spreadsheet.Header{"name": 0, "work_email": 1, "identification_id": 2, "work_phone": 3}

type brokenDirectory struct {
	existsErr error
	createErr error
	panicMsg  string
}

func (b brokenDirectory) Exists(context.Context, employee.Match) (bool, error) {
	if b.panicMsg != "" {
		panic(b.panicMsg)
	}
	return false, b.existsErr
}

func (b brokenDirectory) Create(context.Context, employee.NewEmployee) (employee.Employee, error) {
	return employee.Employee{}, b.createErr
}

func TestProcessCreatesEmployee(t *testing.T) {
	dir := employee.NewMemoryDirectory()
	out := NewProcessor(dir).Process(context.Background(), fullHeader, 2, []string{" John Doe ", "john@x.com", "ID1", ""})

	require.False(t, out.Skipped())
	assert.Equal(t, "John Doe", out.Created.Name)
	require.NotNil(t, out.Created.IdentificationID)
	assert.Equal(t, "ID1", *out.Created.IdentificationID)
	assert.Nil(t, out.Created.WorkPhone, "empty phone is stored as null")
	assert.Len(t, dir.All(), 1)
}

func TestProcessSkips(t *testing.T) {
	ctx := context.Background()
	existing := employee.NewMemoryDirectory(employee.Employee{ID: "e1", Name: "Old", WorkEmail: employee.OptionalString("old@x.com")})

	cases := []struct {
		name    string
		dir     employee.Directory
		header  spreadsheet.Header
		row     []string
		reason  Reason
		message string
	}{
		{
			name:    "blank name",
			dir:     employee.NewMemoryDirectory(),
			header:  fullHeader,
			row:     []string{"  ", "a@x.com", "ID9", ""},
			reason:  ReasonMissingField,
			message: "Row 4: missing name",
		},
		{
			name:    "no name column",
			dir:     employee.NewMemoryDirectory(),
			header:  spreadsheet.Header{"work_email": 0},
			row:     []string{"a@x.com"},
			reason:  ReasonMissingField,
			message: "Row 4: missing name",
		},
		{
			name:    "duplicate email",
			dir:     existing,
			header:  fullHeader,
			row:     []string{"New", "old@x.com", "", ""},
			reason:  ReasonDuplicate,
			message: "Row 4: duplicate (email or id)",
		},
		{
			name:   "short row",
			dir:    employee.NewMemoryDirectory(),
			header: fullHeader,
			row:    []string{"Jane"},
			reason: ReasonMapping,
		},
		{
			name:    "store failure",
			dir:     brokenDirectory{createErr: errors.New("unique violation")},
			header:  fullHeader,
			row:     []string{"Jane", "", "", ""},
			reason:  ReasonCreation,
			message: "Row 4: create error - unique violation",
		},
		{
			name:    "lookup failure",
			dir:     brokenDirectory{existsErr: errors.New("timeout")},
			header:  fullHeader,
			row:     []string{"Jane", "jane@x.com", "", ""},
			reason:  ReasonCreation,
			message: "Row 4: create error - duplicate check: timeout",
		},
		{
			name:   "panicking store",
			dir:    brokenDirectory{panicMsg: "boom"},
			header: fullHeader,
			row:    []string{"Jane", "jane@x.com", "", ""},
			reason: ReasonCreation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := NewProcessor(tc.dir).Process(ctx, tc.header, 4, tc.row)
			require.True(t, out.Skipped())
			assert.Equal(t, tc.reason, out.Reason)
			assert.Equal(t, 4, out.Row)
			if tc.message != "" {
				assert.Equal(t, tc.message, out.Message())
			} else {
				assert.Contains(t, out.Message(), "Row 4: ")
			}
		})
	}
}

func TestProcessWithoutNaturalKeysSkipsLookup(t *testing.T) {
	dir := employee.NewMemoryDirectory()
	p := NewProcessor(dir)
	for i := 0; i < 2; i++ {
		out := p.Process(context.Background(), fullHeader, i+2, []string{"Same Name", "", "", ""})
		assert.False(t, out.Skipped())
	}
	assert.Zero(t, dir.Lookups())
	assert.Len(t, dir.All(), 2)
}

func TestProcessSameIdentificationTwice(t *testing.T) {
	for _, order := range [][]string{{"A", "B"}, {"B", "A"}} {
		dir := employee.NewMemoryDirectory()
		p := NewProcessor(dir)
		var created, dup int
		for i, name := range order {
			out := p.Process(context.Background(), fullHeader, i+2, []string{name, "", "ID1", ""})
			if out.Skipped() {
				assert.Equal(t, ReasonDuplicate, out.Reason)
				dup++
			} else {
				created++
			}
		}
		assert.Equal(t, 1, created)
		assert.Equal(t, 1, dup)
	}
}
