package scada

import (
	"strings"

	"github.com/klytics/scadaflat/internal/sheet"
)

// TagColumn is a tag name found in the header row and the column it heads.
type TagColumn struct {
	Tag    string `json:"tag"`
	Column int    `json:"column"`
}

// ExtractRow returns the string cells of row across the worksheet's used
// range, in column order. Cells containing exclude are dropped; an empty
// exclude drops nothing. Non-string and absent cells are never returned.
func ExtractRow(ws sheet.Worksheet, row int, exclude string) []TagColumn {
	b, ok := ws.Bounds()
	if !ok || row < 0 {
		return nil
	}

	var out []TagColumn
	for col := b.FirstCol; col <= b.LastCol; col++ {
		v := ws.Cell(row, col)
		if v.Kind != sheet.String || v.Str == "" {
			continue
		}
		if exclude != "" && strings.Contains(v.Str, exclude) {
			continue
		}
		out = append(out, TagColumn{Tag: v.Str, Column: col})
	}
	return out
}

// ExtractColumn returns exactly count values of column col starting at
// startRow. Absent cells, including those outside the used range, are Missing.
func ExtractColumn(ws sheet.Worksheet, col, startRow, count int) []sheet.Value {
	if count <= 0 {
		return nil
	}

	out := make([]sheet.Value, count)
	for i := range out {
		out[i] = ws.Cell(startRow+i, col)
	}
	return out
}
