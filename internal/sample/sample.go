// Package sample writes synthetic SCADA exports in the default layout:
// station name in A1, date serial in B6, tag names on row 3 and one reading
// per minute from row 7. Exports are written as .xlsx or as legacy .xls.
// It backs tests, benchmarks and the fixture generator.
package sample

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Export describes one station-day.
type Export struct {
	Station string
	Date    float64 // spreadsheet date serial, 0 leaves B6 empty
	Tags    []string
	Rows    int // readings per tag
	// Date1904 stores the workbook in the 1904 date system.
	Date1904 bool
}

// Reading is the value written for tag column col at row i.
func Reading(col, i int) float64 {
	return math.Round((float64(col+1)*10+math.Sin(float64(i)/60))*100) / 100
}

// Write saves ex at path, as a legacy workbook when path ends in .xls and
// as .xlsx otherwise.
func Write(path string, ex Export) error {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return writeXLS(path, ex)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sh = "Sheet1"

	if ex.Date1904 {
		if err := f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &ex.Date1904}); err != nil {
			return err
		}
	}

	if ex.Station != "" {
		if err := f.SetCellValue(sh, "A1", ex.Station); err != nil {
			return err
		}
	}
	if ex.Date != 0 {
		if err := f.SetCellValue(sh, "B6", ex.Date); err != nil {
			return err
		}
	}

	headers := make([]interface{}, len(ex.Tags))
	for i, tag := range ex.Tags {
		headers[i] = tag
	}
	if err := f.SetSheetRow(sh, "A3", &headers); err != nil {
		return err
	}

	for i := 0; i < ex.Rows; i++ {
		row := make([]interface{}, len(ex.Tags))
		for c := range ex.Tags {
			row[c] = Reading(c, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, 7+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save sample %s: %w", path, err)
	}
	return nil
}

// Zone writes n exports named station_000.xlsx, station_001.xlsx, ... into
// dir and returns their paths.
func Zone(dir string, n int, tags []string, rows int) ([]string, error) {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("station_%03d.xlsx", i))
		err := Write(paths[i], Export{
			Station: fmt.Sprintf("Station %d", i),
			Date:    45306,
			Tags:    tags,
			Rows:    rows,
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
