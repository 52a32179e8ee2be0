package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/staffdrop/internal/employee"
	"github.com/dharsanguruparan/staffdrop/internal/spreadsheet"
)

// Column names looked up in the header row.
const (
	ColumnName             = "name"
	ColumnWorkEmail        = "work_email"
	ColumnIdentificationID = "identification_id"
	ColumnWorkPhone        = "work_phone"
)

// Reason classifies a skipped row.
type Reason string

const (
	ReasonDuplicate    Reason = "duplicate"
	ReasonMissingField Reason = "missing-required-field"
	ReasonMapping      Reason = "mapping-error"
	ReasonCreation     Reason = "creation-error"
)

// Outcome is the result of processing one row: either Created is set, or
// the row was skipped for Reason.
type Outcome struct {
	Row     int
	Created *employee.Employee
	Reason  Reason
	Detail  string
}

// Skipped reports whether the row produced no employee.
func (o Outcome) Skipped() bool {
	return o.Created == nil
}

// Message renders the error line stored on the job for a skipped row.
func (o Outcome) Message() string {
	switch o.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("Row %d: missing name", o.Row)
	case ReasonDuplicate:
		return fmt.Sprintf("Row %d: duplicate (email or id)", o.Row)
	case ReasonMapping:
		return fmt.Sprintf("Row %d: mapping error - %s", o.Row, o.Detail)
	default:
		return fmt.Sprintf("Row %d: create error - %s", o.Row, o.Detail)
	}
}

// Processor turns spreadsheet rows into employees.
type Processor struct {
	directory employee.Directory
}

// NewProcessor constructs a Processor backed by directory.
func NewProcessor(directory employee.Directory) *Processor {
	return &Processor{directory: directory}
}

type rowFields struct {
	name, workEmail, identificationID, workPhone string
}

// Process validates one row, checks it against existing employees and
// creates it. It always returns exactly one Outcome and never panics.
func (p *Processor) Process(ctx context.Context, header spreadsheet.Header, rowNum int, row []string) (out Outcome) {
	out.Row = rowNum
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{Row: rowNum, Reason: ReasonCreation, Detail: fmt.Sprintf("%v", rec)}
		}
	}()

	fields, err := extract(header, row)
	if err != nil {
		out.Reason, out.Detail = ReasonMapping, err.Error()
		return out
	}
	if fields.name == "" {
		out.Reason = ReasonMissingField
		return out
	}

	dup, err := employee.IsDuplicate(ctx, p.directory, fields.identificationID, fields.workEmail)
	if err != nil {
		out.Reason, out.Detail = ReasonCreation, "duplicate check: "+err.Error()
		return out
	}
	if dup {
		out.Reason = ReasonDuplicate
		return out
	}

	created, err := p.directory.Create(ctx, employee.NewEmployee{
		Name:             fields.name,
		WorkEmail:        employee.OptionalString(fields.workEmail),
		IdentificationID: employee.OptionalString(fields.identificationID),
		WorkPhone:        employee.OptionalString(fields.workPhone),
	})
	if err != nil {
		out.Reason, out.Detail = ReasonCreation, err.Error()
		return out
	}
	out.Created = &created
	return out
}

func extract(header spreadsheet.Header, row []string) (rowFields, error) {
	var (
		f   rowFields
		err error
	)
	if f.name, err = cell(header, row, ColumnName); err != nil {
		return f, err
	}
	if f.workEmail, err = cell(header, row, ColumnWorkEmail); err != nil {
		return f, err
	}
	if f.identificationID, err = cell(header, row, ColumnIdentificationID); err != nil {
		return f, err
	}
	if f.workPhone, err = cell(header, row, ColumnWorkPhone); err != nil {
		return f, err
	}
	return f, nil
}

// cell returns the trimmed value of column, or "" when the header has no such
// column. A row too short to hold the column is a mapping error.
func cell(header spreadsheet.Header, row []string, column string) (string, error) {
	idx, ok := header.Index(column)
	if !ok {
		return "", nil
	}
	if idx < 0 || idx >= len(row) {
		return "", fmt.Errorf("column %q at index %d is out of range for a row of %d cells", column, idx, len(row))
	}
	return strings.TrimSpace(row[idx]), nil
}
