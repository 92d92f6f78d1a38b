package scada

import (
	"fmt"

	"github.com/klytics/scadaflat/internal/sheet"
)

// ReadBatch reads a batch workbook back into OutputRows. Missing readings
// were written as "N/A" and come back as that string. Empty zone, time and
// tag cells come back as empty strings.
func ReadBatch(path string) ([]OutputRow, error) {
	ws, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	for col, want := range Header {
		if got := ws.Cell(0, col); got != sheet.Text(want) {
			return nil, fmt.Errorf("%w in %s: column %d is %q, want %q", ErrBadHeader, path, col+1, got.String(), want)
		}
	}

	b, ok := ws.Bounds()
	if !ok {
		return nil, nil
	}

	rows := make([]OutputRow, 0, b.LastRow)
	for r := 1; r <= b.LastRow; r++ {
		row := OutputRow{
			Zone:    text(ws.Cell(r, 0)),
			Station: ws.Cell(r, 1),
			Date:    ws.Cell(r, 2),
			Time:    text(ws.Cell(r, 3)),
			Tag:     text(ws.Cell(r, 4)),
			Data:    ws.Cell(r, 5),
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func text(v sheet.Value) string {
	if v.IsMissing() {
		return ""
	}
	return v.String()
}
