package scada

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// export describes a synthetic SCADA export in the default layout: station
// in A1, date in B6, headers on the third row and readings from the seventh.
type export struct {
	station interface{}
	date    interface{}
	headers []interface{}
	columns [][]interface{} // one slice of readings per header column
}

func writeExport(t *testing.T, dir, name string, ex export) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	const sh = "Sheet1"

	if ex.station != nil {
		require.NoError(t, f.SetCellValue(sh, "A1", ex.station))
	}
	if ex.date != nil {
		require.NoError(t, f.SetCellValue(sh, "B6", ex.date))
	}
	if len(ex.headers) > 0 {
		headers := ex.headers
		require.NoError(t, f.SetSheetRow(sh, "A3", &headers))
	}

	rows := 0
	for _, col := range ex.columns {
		rows = max(rows, len(col))
	}
	for i := 0; i < rows; i++ {
		row := make([]interface{}, len(ex.columns))
		for c, col := range ex.columns {
			if i < len(col) {
				row[c] = col[i]
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, 7+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sh, cell, &row))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// sequence returns n readings start, start+step, ...
func sequence(n, start, step int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = start + i*step
	}
	return out
}

// smallLayout keeps fixtures fast for tests that only care about batching.
func smallLayout(rows int) Layout {
	l := DefaultLayout()
	l.Rows = rows
	return l
}

func writeZone(t *testing.T, dir string, files int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := 0; i < files; i++ {
		writeExport(t, dir, fmt.Sprintf("station_%03d.xlsx", i), export{
			station: fmt.Sprintf("Station %d", i),
			date:    45306,
			headers: []interface{}{"FLOW"},
			columns: [][]interface{}{{i, i + 1}},
		})
	}
}
