// Package spreadsheet streams rows out of an xlsx workbook. Only the active
// sheet is read and the first row is treated as the header.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnreadableFile wraps every failure to decode the uploaded document.
	ErrUnreadableFile = errors.New("unreadable file")
	// ErrEmptyFile is returned when the sheet has no header row.
	ErrEmptyFile = errors.New("empty file")
)

// Header maps a lower-cased, trimmed column name to its zero-based index.
type Header map[string]int

// Index returns the column index for name and whether the column exists.
func (h Header) Index(name string) (int, bool) {
	idx, ok := h[name]
	return idx, ok
}

// rawCells keeps numeric cells as stored. Formatted values round anything past
// 15 significant digits, which corrupts long numeric ids.
var rawCells = excelize.Options{RawCellValue: true}

// Reader is a single-pass row iterator. Call Header once before Next.
type Reader struct {
	file  *excelize.File
	rows  *excelize.Rows
	width int
	row   []string
	err   error
}

// Open decodes data as an xlsx workbook and prepares a streaming iterator over
// its active sheet. The workbook is never materialized as a full cell grid.
func Open(data []byte) (r *Reader, err error) {
	// The decoder is third-party code fed with untrusted input; a panic there
	// must surface as an unreadable file, not crash the worker.
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("%w: %v", ErrUnreadableFile, rec)
		}
	}()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		if list := f.GetSheetList(); len(list) > 0 {
			sheet = list[0]
		}
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return &Reader{file: f, rows: rows}, nil
}

// Header consumes the first row and builds the column mapping. Blank header
// cells are ignored and the first occurrence of a repeated name wins.
func (r *Reader) Header() (Header, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		return nil, ErrEmptyFile
	}
	cells, err := r.rows.Columns(rawCells)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	header := make(Header, len(cells))
	for i, cell := range cells {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if _, seen := header[name]; !seen {
			header[name] = i
		}
	}
	r.width = len(cells)
	return header, nil
}

// Next advances to the following data row. It returns false when the sheet is
// exhausted or a decode error occurred; check Err afterwards.
func (r *Reader) Next() bool {
	if r.err != nil || !r.rows.Next() {
		if r.err == nil {
			if err := r.rows.Error(); err != nil {
				r.err = fmt.Errorf("%w: %v", ErrUnreadableFile, err)
			}
		}
		return false
	}
	cells, err := r.rows.Columns(rawCells)
	if err != nil {
		r.err = fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		return false
	}
	// excelize trims trailing empty cells; pad back to the header width so a
	// row with a blank last column still lines up with the header.
	for len(cells) < r.width {
		cells = append(cells, "")
	}
	r.row = cells
	return true
}

// Row returns the current row's cell values.
func (r *Reader) Row() []string {
	return r.row
}

// Err returns the first decode error hit while iterating.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the iterator and the workbook's temporary files.
func (r *Reader) Close() error {
	rowsErr := r.rows.Close()
	fileErr := r.file.Close()
	return errors.Join(rowsErr, fileErr)
}
