package scada

import (
	"github.com/klytics/scadaflat/internal/sheet"
)

// Header is the first row of every batch workbook.
var Header = []string{"Zone", "Name of Station", "Date", "Time", "SCADA Tag", "Data"}

// OutputRow is one reading in long format.
type OutputRow struct {
	Zone    string      `json:"zone"`
	Station sheet.Value `json:"station"`
	Date    sheet.Value `json:"date"`
	Time    string      `json:"time"`
	Tag     string      `json:"tag"`
	Data    sheet.Value `json:"data"`
}

func (r OutputRow) cells() []interface{} {
	return []interface{}{r.Zone, r.Station, r.Date, r.Time, r.Tag, r.Data}
}

// Table accumulates the rows of one batch. The header is implicit: a new or
// reset table is header-only.
type Table struct {
	rows []OutputRow
}

// NewTable returns a header-only table.
func NewTable() *Table {
	return &Table{}
}

// Append adds rows in order.
func (t *Table) Append(rows ...OutputRow) {
	t.rows = append(t.rows, rows...)
}

// Reset empties the table back to header-only.
func (t *Table) Reset() {
	t.rows = t.rows[:0]
}

// Len returns the number of data rows, excluding the header.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns the accumulated rows. The slice is owned by the table.
func (t *Table) Rows() []OutputRow { return t.rows }

// WriteFile writes the header and all rows as a single-sheet workbook.
func (t *Table) WriteFile(path, sheetName string) error {
	w, err := sheet.NewWriter(sheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := w.WriteRow(header); err != nil {
		w.Close()
		return err
	}

	for _, r := range t.rows {
		if err := w.WriteRow(r.cells()); err != nil {
			w.Close()
			return err
		}
	}

	return w.SaveAs(path)
}
