// Package output holds the shared rendering helpers of the CLI commands.
package output

import (
	"encoding/json"
	"io"
)

// JSON encodes v as indented JSON followed by a newline.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
