package scada

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klytics/scadaflat/internal/logging"
)

func TestPartition(t *testing.T) {
	items := make([]string, 120)
	for i := range items {
		items[i] = fmt.Sprintf("f%03d", i)
	}

	batches := Partition(items, 50)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)
	assert.Equal(t, "f000", batches[0][0])
	assert.Equal(t, "f050", batches[1][0])
	assert.Equal(t, "f119", batches[2][19])

	assert.Len(t, Partition(items[:50], 50), 1)
	assert.Empty(t, Partition(nil, 50))
	assert.Empty(t, Partition(items, 0))
}

func TestBatchNames(t *testing.T) {
	assert.Equal(t, "Batch_3_Extracted_SCADA_Tag_Data.xlsx", BatchFileName(3))
	assert.Equal(t, "Batch_3", BatchSheetName(3))
}

func newTestConverter(t *testing.T, rows int, opts Options) *Converter {
	t.Helper()
	tf, err := NewTransformer(smallLayout(rows), nil)
	require.NoError(t, err)
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	conv, err := NewConverter(tf, opts)
	require.NoError(t, err)
	return conv
}

func TestConvertZoneBatches(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "BGM_testing")
	out := filepath.Join(root, "nested", "output_BGM")
	writeZone(t, in, 120)

	conv := newTestConverter(t, 2, Options{})
	res, err := conv.ConvertZone(context.Background(), NewZone(in, out))
	require.NoError(t, err)
	assert.Equal(t, "BGM", res.Zone)
	require.Len(t, res.Batches, 3)

	wantFiles := []int{50, 50, 20}
	for i, b := range res.Batches {
		assert.Equal(t, i+1, b.Number)
		assert.True(t, b.Written)
		assert.Len(t, b.Converted, wantFiles[i])
		assert.Equal(t, filepath.Join(out, BatchFileName(i+1)), b.Path)

		rows, err := ReadBatch(b.Path)
		require.NoError(t, err)
		// One tag, two readings per file; a fresh table per batch.
		assert.Len(t, rows, wantFiles[i]*2, "batch %d", i+1)
	}

	first, err := ReadBatch(res.Batches[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "Station 50", first[0].Station.String())

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestConvertZoneSkipsUnrecognizedEntries(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "BGK_testing")
	out := filepath.Join(root, "output_BGK")
	writeZone(t, in, 2)
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), []byte("notes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "~$station_000.xlsx"), []byte("lock"), 0644))

	conv := newTestConverter(t, 2, Options{})
	res, err := conv.ConvertZone(context.Background(), NewZone(in, out))
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)

	b := res.Batches[0]
	assert.Len(t, b.Converted, 2)
	assert.Len(t, b.Skipped, 2)
	assert.Empty(t, b.Failed)
	assert.Equal(t, 4, b.Rows)
}

func TestConvertZoneAbortOnLoadError(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "BGM_testing")
	out := filepath.Join(root, "output_BGM")
	writeZone(t, in, 2)
	require.NoError(t, os.WriteFile(filepath.Join(in, "station_000b.xlsx"), []byte("corrupt"), 0644))

	conv := newTestConverter(t, 2, Options{OnFileError: PolicyAbort})
	res, err := conv.ConvertZone(context.Background(), NewZone(in, out))

	var loadErr *FileLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, filepath.Join(in, "station_000b.xlsx"), loadErr.Path)
	assert.NotEmpty(t, res.Error)

	_, statErr := os.Stat(filepath.Join(out, BatchFileName(1)))
	assert.True(t, os.IsNotExist(statErr), "aborted batch must not be written")
}

func TestConvertZoneSkipOnLoadError(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "BGM_testing")
	out := filepath.Join(root, "output_BGM")
	writeZone(t, in, 2)
	require.NoError(t, os.WriteFile(filepath.Join(in, "station_000b.xlsx"), []byte("corrupt"), 0644))

	conv := newTestConverter(t, 2, Options{OnFileError: PolicySkip})
	res, err := conv.ConvertZone(context.Background(), NewZone(in, out))
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)

	b := res.Batches[0]
	assert.Len(t, b.Converted, 2)
	require.Len(t, b.Failed, 1)
	assert.Contains(t, b.Failed[0].Path, "station_000b.xlsx")

	rows, err := ReadBatch(b.Path)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestConvertZoneMissingFolder(t *testing.T) {
	conv := newTestConverter(t, 2, Options{})
	_, err := conv.ConvertZone(context.Background(), NewZone(filepath.Join(t.TempDir(), "nope_x"), t.TempDir()))

	var dirErr *DirectoryReadError
	require.ErrorAs(t, err, &dirErr)
}

func TestConvertZoneCancelled(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "BGM_testing")
	writeZone(t, in, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := newTestConverter(t, 2, Options{})
	_, err := conv.ConvertZone(ctx, NewZone(in, filepath.Join(root, "out")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunIsolatesZoneFailures(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "BGK_testing")
	writeZone(t, good, 3)

	zones := []Zone{
		NewZone(filepath.Join(root, "BGM_missing"), filepath.Join(root, "output_BGM")),
		NewZone(good, filepath.Join(root, "output_BGK")),
	}

	var (
		mu    sync.Mutex
		calls []string
	)
	conv := newTestConverter(t, 2, Options{
		Workers: 2,
		OnFile: func(zone string, done, total int, path string) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, fmt.Sprintf("%s %d/%d", zone, done, total))
		},
	})

	report, err := conv.Run(context.Background(), zones)

	var dirErr *DirectoryReadError
	require.ErrorAs(t, err, &dirErr)
	require.Len(t, report.Zones, 2)
	assert.NotEmpty(t, report.Zones[0].Error)
	assert.Empty(t, report.Zones[1].Error)
	require.Len(t, report.Zones[1].Batches, 1)
	assert.True(t, report.Zones[1].Batches[0].Written)
	assert.ElementsMatch(t, []string{"BGK 1/3", "BGK 2/3", "BGK 3/3"}, calls)

	totals := report.Totals()
	assert.Equal(t, 2, totals.Zones)
	assert.Equal(t, 1, totals.Batches)
	assert.Equal(t, 3, totals.Converted)
	assert.Equal(t, 6, totals.Rows)
	assert.Equal(t, 1, totals.Errors)
}

func TestNewConverterRejectsBadBatchSize(t *testing.T) {
	tf, err := NewTransformer(DefaultLayout(), nil)
	require.NoError(t, err)
	_, err = NewConverter(tf, Options{BatchSize: 0})
	assert.Error(t, err)
}

func TestRunTagsLogsWithRunID(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "BGM_testing")
	writeZone(t, in, 1)

	var buf bytes.Buffer
	conv := newTestConverter(t, 2, Options{Logger: logging.New(&buf, logging.Options{})})

	report, err := conv.Run(context.Background(), []Zone{NewZone(in, filepath.Join(root, "out"))})
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run="+report.RunID)
	assert.Contains(t, buf.String(), "batch written")
}
