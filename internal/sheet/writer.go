package sheet

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// MaxRows is the row limit of a single .xlsx worksheet.
const MaxRows = excelize.TotalRows

// ErrTooManyRows is returned when a write would exceed MaxRows.
var ErrTooManyRows = errors.New("row limit of an .xlsx worksheet exceeded")

// Writer streams rows into a new single-sheet workbook.
type Writer struct {
	f     *excelize.File
	sw    *excelize.StreamWriter
	sheet string
	rows  int
}

// NewWriter creates a workbook whose only sheet is named sheetName.
func NewWriter(sheetName string) (*Writer, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not create stream writer for %q: %w", sheetName, err)
	}

	return &Writer{f: f, sw: sw, sheet: sheetName}, nil
}

// WriteRow appends one row of cell values. Values may be Value, string,
// float64, bool or any type excelize accepts.
func (w *Writer) WriteRow(values []interface{}) error {
	if w.rows >= MaxRows {
		return fmt.Errorf("%w: sheet %q", ErrTooManyRows, w.sheet)
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		if val, ok := v.(Value); ok {
			cells[i] = val.Interface()
			continue
		}
		cells[i] = v
	}

	cell, err := excelize.CoordinatesToCellName(1, w.rows+1)
	if err != nil {
		return fmt.Errorf("invalid cell coordinates: %w", err)
	}
	if err := w.sw.SetRow(cell, cells); err != nil {
		return fmt.Errorf("could not write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int { return w.rows }

// SaveAs flushes the stream and saves the workbook to path. The writer must
// not be used afterwards.
func (w *Writer) SaveAs(path string) error {
	defer w.f.Close()

	if err := w.sw.Flush(); err != nil {
		return fmt.Errorf("could not flush sheet %q: %w", w.sheet, err)
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

// Close discards an unsaved workbook.
func (w *Writer) Close() error { return w.f.Close() }
