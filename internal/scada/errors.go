package scada

import (
	"errors"
	"fmt"
)

// ErrBadHeader is returned by ReadBatch when the first row is not the batch
// header.
var ErrBadHeader = errors.New("not a batch workbook: unexpected header row")

// DirectoryReadError means a zone's input folder could not be listed.
type DirectoryReadError struct {
	Dir string
	Err error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("could not read folder %s: %v", e.Dir, e.Err)
}

func (e *DirectoryReadError) Unwrap() error { return e.Err }

// FileLoadError means an input file could not be parsed as a spreadsheet.
type FileLoadError struct {
	Path string
	Err  error
}

func (e *FileLoadError) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Path, e.Err)
}

func (e *FileLoadError) Unwrap() error { return e.Err }

// BatchWriteError means a batch workbook could not be written.
type BatchWriteError struct {
	Path string
	Err  error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("could not write batch %s: %v", e.Path, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }
