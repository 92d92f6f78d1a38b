package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupported is returned by Open for files that are neither .xlsx nor .xls.
var ErrUnsupported = errors.New("unsupported spreadsheet format")

// Extensions maps recognized input extensions to a format label.
var Extensions = map[string]string{
	".xlsx": "Excel",
	".xls":  "Excel (Legacy)",
}

// Supported reports whether path has a recognized spreadsheet extension.
// Office lock files (~$name.xlsx) are never supported.
func Supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return false
	}
	_, ok := Extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

// Bounds is the zero-based, inclusive used range of a worksheet.
type Bounds struct {
	FirstRow int
	FirstCol int
	LastRow  int
	LastCol  int
}

// Worksheet is read access to a single worksheet. Row and column indexes
// are zero-based.
type Worksheet interface {
	// Name returns the sheet name.
	Name() string
	// Bounds returns the declared used range; ok is false for an empty sheet.
	Bounds() (b Bounds, ok bool)
	// Cell returns the value at (row, col), or a Missing value.
	Cell(row, col int) Value
	// DateToTime converts a serial date using the workbook's date system.
	DateToTime(serial float64) (time.Time, error)
	// Close releases the underlying workbook.
	Close() error
}

// Open opens the first worksheet of the spreadsheet at path.
func Open(path string) (Worksheet, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s: %w", path, err)
	}

	var (
		ws  Worksheet
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		ws, err = openXLSX(path)
	case ".xls":
		ws, err = openXLS(path)
	default:
		return nil, fmt.Errorf("%w %q (supported: .xlsx, .xls)", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, err
	}
	return ws, nil
}
