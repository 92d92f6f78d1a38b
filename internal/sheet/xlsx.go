package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type xlsxSheet struct {
	f         *excelize.File
	name      string
	date1904  bool
	bounds    Bounds
	hasBounds bool
	// grid holds every cell up to the last non-empty one, typed once at open.
	grid [][]Value
}

func openXLSX(path string) (*xlsxSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s, is this a valid .xlsx file? %w", path, err)
	}

	ws, err := newXLSXSheet(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return ws, nil
}

func newXLSXSheet(f *excelize.File) (*xlsxSheet, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	ws := &xlsxSheet{f: f, name: names[0]}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		ws.date1904 = *props.Date1904
	}

	b, ok, err := ws.usedRange()
	if err != nil {
		return nil, err
	}
	ws.bounds, ws.hasBounds = b, ok
	return ws, nil
}

// usedRange is the union of the sheet's <dimension> element and the cells
// actually present. Writers that never update the element leave a stale
// "A1" behind, so the declared range alone cannot be trusted.
func (ws *xlsxSheet) usedRange() (Bounds, bool, error) {
	declared, hasDeclared := Bounds{}, false
	if dim, err := ws.f.GetSheetDimension(ws.name); err == nil && dim != "" {
		declared, hasDeclared = parseRange(dim)
	}

	rows, err := ws.f.GetRows(ws.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Bounds{}, false, fmt.Errorf("could not read sheet %q: %w", ws.name, err)
	}
	if ws.grid, err = ws.typeRows(rows); err != nil {
		return Bounds{}, false, err
	}

	scanned, hasScanned := Bounds{LastRow: len(rows) - 1, LastCol: -1}, false
	for _, row := range rows {
		if len(row)-1 > scanned.LastCol {
			scanned.LastCol = len(row) - 1
			hasScanned = true
		}
	}

	switch {
	case hasDeclared && hasScanned:
		return union(declared, scanned), true, nil
	case hasDeclared:
		return declared, true, nil
	case hasScanned:
		return scanned, true, nil
	}
	return Bounds{}, false, nil
}

func union(a, b Bounds) Bounds {
	return Bounds{
		FirstRow: min(a.FirstRow, b.FirstRow),
		FirstCol: min(a.FirstCol, b.FirstCol),
		LastRow:  max(a.LastRow, b.LastRow),
		LastCol:  max(a.LastCol, b.LastCol),
	}
}

// parseRange parses "A1:D10" or a single-cell "A1" reference.
func parseRange(ref string) (Bounds, bool) {
	parts := strings.Split(ref, ":")
	if len(parts) > 2 {
		return Bounds{}, false
	}

	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Bounds{}, false
	}
	c2, r2 := c1, r1
	if len(parts) == 2 {
		if c2, r2, err = excelize.CellNameToCoordinates(parts[1]); err != nil {
			return Bounds{}, false
		}
	}

	return Bounds{
		FirstRow: min(r1, r2) - 1,
		FirstCol: min(c1, c2) - 1,
		LastRow:  max(r1, r2) - 1,
		LastCol:  max(c1, c2) - 1,
	}, true
}

func (ws *xlsxSheet) Name() string { return ws.name }

func (ws *xlsxSheet) Bounds() (Bounds, bool) { return ws.bounds, ws.hasBounds }

func (ws *xlsxSheet) Cell(row, col int) Value {
	if row < 0 || col < 0 || row >= len(ws.grid) || col >= len(ws.grid[row]) {
		return Value{}
	}
	return ws.grid[row][col]
}

// typeRows converts raw cell text into typed values. Only text that parses
// as a number is ambiguous, so the cell type is looked up for those alone.
func (ws *xlsxSheet) typeRows(rows [][]string) ([][]Value, error) {
	grid := make([][]Value, len(rows))
	for r, row := range rows {
		grid[r] = make([]Value, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				grid[r][c] = Text(raw)
				continue
			}

			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("invalid cell coordinates: %w", err)
			}
			typ, err := ws.f.GetCellType(ws.name, ref)
			if err != nil {
				return nil, fmt.Errorf("could not read type of %s: %w", ref, err)
			}
			grid[r][c] = typed(typ, raw, f)
		}
	}
	return grid, nil
}

func typed(typ excelize.CellType, raw string, f float64) Value {
	switch typ {
	case excelize.CellTypeBool:
		return Boolean(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError, excelize.CellTypeDate:
		return Text(raw)
	default:
		// Numbers are stored without a type attribute.
		return Num(f)
	}
}

func (ws *xlsxSheet) DateToTime(serial float64) (time.Time, error) {
	return excelize.ExcelDateToTime(serial, ws.date1904)
}

func (ws *xlsxSheet) Close() error { return ws.f.Close() }
