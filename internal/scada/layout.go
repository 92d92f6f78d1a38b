package scada

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Layout locates the fields of an input export. Rows are zero-based.
type Layout struct {
	StationCell  string `mapstructure:"station_cell" yaml:"station_cell" json:"stationCell"`
	DateCell     string `mapstructure:"date_cell" yaml:"date_cell" json:"dateCell"`
	HeaderRow    int    `mapstructure:"header_row" yaml:"header_row" json:"headerRow" validate:"min=0"`
	DataStartRow int    `mapstructure:"data_start_row" yaml:"data_start_row" json:"dataStartRow" validate:"min=0"`
	Rows         int    `mapstructure:"rows" yaml:"rows" json:"rows" validate:"gt=0"`
	Exclude      string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// DefaultLayout is the layout of a full-day per-minute export.
func DefaultLayout() Layout {
	return Layout{
		StationCell:  "A1",
		DateCell:     "B6",
		HeaderRow:    2,
		DataStartRow: 6,
		Rows:         MinutesPerDay,
		Exclude:      "DUMMY",
	}
}

// Validate checks that the layout can be applied to a worksheet.
func (l Layout) Validate() error {
	if _, _, err := cellIndex(l.StationCell); err != nil {
		return fmt.Errorf("layout.station_cell: %w", err)
	}
	if _, _, err := cellIndex(l.DateCell); err != nil {
		return fmt.Errorf("layout.date_cell: %w", err)
	}
	if l.HeaderRow < 0 {
		return fmt.Errorf("layout.header_row must be >= 0, got %d", l.HeaderRow)
	}
	if l.DataStartRow < 0 {
		return fmt.Errorf("layout.data_start_row must be >= 0, got %d", l.DataStartRow)
	}
	if l.Rows <= 0 {
		return fmt.Errorf("layout.rows must be > 0, got %d", l.Rows)
	}
	return nil
}

// cellIndex converts an A1 reference to zero-based (row, col).
func cellIndex(ref string) (int, int, error) {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	return row - 1, col - 1, nil
}
