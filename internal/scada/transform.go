package scada

import (
	"log/slog"

	"github.com/klytics/scadaflat/internal/logging"
	"github.com/klytics/scadaflat/internal/sheet"
)

// FileSummary describes what was extracted from one input file.
type FileSummary struct {
	Path    string      `json:"path"`
	Sheet   string      `json:"sheet"`
	Station sheet.Value `json:"station"`
	Date    sheet.Value `json:"date"`
	Tags    []TagColumn `json:"tags"`
	// Coverage is how many of the expected data rows the sheet contains;
	// the remainder is padded with missing readings.
	Coverage int `json:"coverage"`
	Rows     int `json:"rows"`
}

// TagNames returns the tag names in column order.
func (s FileSummary) TagNames() []string {
	names := make([]string, len(s.Tags))
	for i, tc := range s.Tags {
		names[i] = tc.Tag
	}
	return names
}

// Transformer turns input files into OutputRows according to a Layout.
type Transformer struct {
	layout    Layout
	intervals []string
	logger    *slog.Logger

	stationRow, stationCol int
	dateRow, dateCol       int
}

// NewTransformer validates layout and precomputes the time intervals.
// A nil logger discards diagnostics.
func NewTransformer(layout Layout, logger *slog.Logger) (*Transformer, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	t := &Transformer{
		layout:    layout,
		intervals: TimeIntervals(layout.Rows),
		logger:    logger,
	}
	t.stationRow, t.stationCol, _ = cellIndex(layout.StationCell)
	t.dateRow, t.dateCol, _ = cellIndex(layout.DateCell)
	return t, nil
}

// Layout returns the layout the transformer applies.
func (t *Transformer) Layout() Layout { return t.layout }

// Intervals returns the time interval labels, one per data row.
func (t *Transformer) Intervals() []string { return t.intervals }

// Inspect opens path and extracts the station, date and tag list without
// reading any data rows.
func (t *Transformer) Inspect(path string) (FileSummary, error) {
	ws, err := sheet.Open(path)
	if err != nil {
		return FileSummary{}, &FileLoadError{Path: path, Err: err}
	}
	defer ws.Close()

	return t.summarize(path, ws), nil
}

// TransformFile appends the rows of the file at path to table, tag by tag
// and within a tag in time order. If the file cannot be loaded the table is
// left unchanged and a *FileLoadError is returned.
func (t *Transformer) TransformFile(path, zone string, table *Table) (FileSummary, error) {
	ws, err := sheet.Open(path)
	if err != nil {
		return FileSummary{}, &FileLoadError{Path: path, Err: err}
	}
	defer ws.Close()

	sum := t.summarize(path, ws)
	t.logger.Info("tags found",
		slog.String("file", path),
		slog.String("zone", zone),
		slog.Any("tags", sum.TagNames()))

	rows := t.rows(ws, zone, sum)
	table.Append(rows...)
	sum.Rows = len(rows)
	return sum, nil
}

// Transform is TransformFile for an already opened worksheet.
func (t *Transformer) Transform(ws sheet.Worksheet, zone string, table *Table) FileSummary {
	sum := t.summarize("", ws)
	rows := t.rows(ws, zone, sum)
	table.Append(rows...)
	sum.Rows = len(rows)
	return sum
}

func (t *Transformer) summarize(path string, ws sheet.Worksheet) FileSummary {
	sum := FileSummary{
		Path:    path,
		Sheet:   ws.Name(),
		Station: ws.Cell(t.stationRow, t.stationCol),
		Date:    FormatDate(ws, ws.Cell(t.dateRow, t.dateCol)),
		Tags:    ExtractRow(ws, t.layout.HeaderRow, t.layout.Exclude),
	}
	if b, ok := ws.Bounds(); ok {
		sum.Coverage = min(max(b.LastRow-t.layout.DataStartRow+1, 0), t.layout.Rows)
	}
	return sum
}

func (t *Transformer) rows(ws sheet.Worksheet, zone string, sum FileSummary) []OutputRow {
	rows := make([]OutputRow, 0, len(sum.Tags)*len(t.intervals))
	for _, tc := range sum.Tags {
		readings := ExtractColumn(ws, tc.Column, t.layout.DataStartRow, t.layout.Rows)
		for i, v := range readings {
			rows = append(rows, OutputRow{
				Zone:    zone,
				Station: sum.Station,
				Date:    sum.Date,
				Time:    t.intervals[i],
				Tag:     tc.Tag,
				Data:    v,
			})
		}
	}
	return rows
}

// FormatDate renders a numeric value as a yyyy-mm-dd date using the
// worksheet's date system. Anything else, including numbers outside the
// representable range, is returned unchanged.
func FormatDate(ws sheet.Worksheet, v sheet.Value) sheet.Value {
	serial, ok := v.Float()
	if !ok {
		return v
	}
	tm, err := ws.DateToTime(serial)
	if err != nil {
		return v
	}
	return sheet.Text(tm.Format("2006-01-02"))
}
