package scada

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klytics/scadaflat/internal/logging"
	"github.com/klytics/scadaflat/internal/sheet"
)

// DefaultBatchSize is the number of directory entries per output workbook.
const DefaultBatchSize = 50

// Policy decides what happens when an input file cannot be loaded.
type Policy string

const (
	// PolicyAbort stops the zone; the batch in progress is not written.
	PolicyAbort Policy = "abort"
	// PolicySkip logs the failure and continues without the file's rows.
	PolicySkip Policy = "skip"
)

// ParsePolicy parses "abort" or "skip".
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	case "":
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown file error policy %q, supported: abort, skip", s)
	}
}

// Options configures a Converter.
type Options struct {
	BatchSize   int
	OnFileError Policy
	Workers     int
	Logger      *slog.Logger
	// OnFile, if set, is called after every spreadsheet of a zone was
	// handled, successfully or not. done counts from 1.
	OnFile func(zone string, done, total int, path string)
}

// Converter runs the batch pipeline over zone folders.
type Converter struct {
	tf     *Transformer
	opts   Options
	logger *slog.Logger
}

// NewConverter returns a Converter using tf for per-file extraction.
func NewConverter(tf *Transformer, opts Options) (*Converter, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", opts.BatchSize)
	}
	if opts.OnFileError == "" {
		opts.OnFileError = PolicyAbort
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Converter{tf: tf, opts: opts, logger: logger}, nil
}

// Partition splits items into consecutive chunks of at most size entries,
// preserving order. It returns ceil(len(items)/size) chunks.
func Partition(items []string, size int) [][]string {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	out := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// BatchFileName returns the workbook file name of 1-based batch n.
func BatchFileName(n int) string {
	return fmt.Sprintf("Batch_%d_Extracted_SCADA_Tag_Data.xlsx", n)
}

// BatchSheetName returns the sheet name of 1-based batch n.
func BatchSheetName(n int) string {
	return fmt.Sprintf("Batch_%d", n)
}

// ConvertZone lists the zone's input folder and converts it batch by batch.
func (c *Converter) ConvertZone(ctx context.Context, z Zone) (ZoneResult, error) {
	res := ZoneResult{Zone: z.Name, Input: z.Input, Output: z.Output}

	entries, err := os.ReadDir(z.Input)
	if err != nil {
		derr := &DirectoryReadError{Dir: z.Input, Err: err}
		c.logger.Error("could not read zone folder",
			slog.String("zone", z.Name),
			slog.String("dir", z.Input),
			slog.Any("error", err))
		res.Error = derr.Error()
		return res, derr
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}

	res.Batches, err = c.ConvertFiles(ctx, z, names)
	if err != nil {
		res.Error = err.Error()
	}
	return res, err
}

// ConvertFiles converts the named entries of z.Input in batches of the
// configured size. Entries without a spreadsheet extension are skipped.
func (c *Converter) ConvertFiles(ctx context.Context, z Zone, names []string) ([]BatchResult, error) {
	total := 0
	for _, name := range names {
		if sheet.Supported(name) {
			total++
		}
	}

	var (
		results []BatchResult
		done    int
	)
	for i, batch := range Partition(names, c.opts.BatchSize) {
		br, err := c.convertBatch(ctx, z, i+1, batch, &done, total)
		results = append(results, br)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (c *Converter) convertBatch(ctx context.Context, z Zone, n int, names []string, done *int, total int) (BatchResult, error) {
	br := BatchResult{Number: n, Converted: []string{}}
	table := NewTable()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return br, err
		}

		path := filepath.Join(z.Input, name)
		if !sheet.Supported(name) {
			c.logger.Debug("skipping non-spreadsheet entry",
				slog.String("zone", z.Name),
				slog.String("file", path))
			br.Skipped = append(br.Skipped, path)
			continue
		}

		_, err := c.tf.TransformFile(path, z.Name, table)
		*done++
		if c.opts.OnFile != nil {
			c.opts.OnFile(z.Name, *done, total, path)
		}
		if err != nil {
			if c.opts.OnFileError == PolicySkip {
				c.logger.Warn("skipping unreadable file",
					slog.String("zone", z.Name),
					slog.String("file", path),
					slog.Any("error", err))
				br.Failed = append(br.Failed, FileFailure{Path: path, Error: err.Error()})
				continue
			}
			c.logger.Error("aborting zone on unreadable file",
				slog.String("zone", z.Name),
				slog.String("file", path),
				slog.Int("batch", n),
				slog.Any("error", err))
			br.Failed = append(br.Failed, FileFailure{Path: path, Error: err.Error()})
			return br, err
		}
		br.Converted = append(br.Converted, path)
	}

	out := filepath.Join(z.Output, BatchFileName(n))
	if err := os.MkdirAll(z.Output, 0755); err != nil {
		return br, &BatchWriteError{Path: out, Err: fmt.Errorf("could not create output directory: %w", err)}
	}
	if err := table.WriteFile(out, BatchSheetName(n)); err != nil {
		// Don't leave a half-written workbook behind.
		if rmErr := os.Remove(out); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("could not remove partial batch", slog.String("file", out), slog.Any("error", rmErr))
		}
		return br, &BatchWriteError{Path: out, Err: err}
	}

	br.Path = out
	br.Rows = table.Len()
	br.Written = true
	c.logger.Info("batch written",
		slog.String("zone", z.Name),
		slog.Int("batch", n),
		slog.Int("files", len(br.Converted)),
		slog.Int("rows", br.Rows),
		slog.String("path", out))
	return br, nil
}
