package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateColumns is the header row of the employee import template.
var TemplateColumns = []any{"name", "work_email", "identification_id", "work_phone"}

// Write renders rows into a single-sheet xlsx workbook using the streaming
// writer, so large exports do not hold every cell in memory.
func Write(rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("new stream writer: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Template returns an empty import workbook containing only the header row.
func Template() ([]byte, error) {
	return Write([][]any{TemplateColumns})
}
