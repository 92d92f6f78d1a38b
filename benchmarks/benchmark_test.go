package benchmarks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klytics/scadaflat/internal/sample"
	"github.com/klytics/scadaflat/internal/scada"
)

var tags = []string{"FLOW", "PRESSURE", "LEVEL", "DUMMY", "TEMP"}

func newTransformer(b *testing.B) *scada.Transformer {
	b.Helper()
	tf, err := scada.NewTransformer(scada.DefaultLayout(), nil)
	if err != nil {
		b.Fatal(err)
	}
	return tf
}

// --- Per-file benchmarks ---

func BenchmarkTransformFile(b *testing.B) {
	path := filepath.Join(b.TempDir(), "station.xlsx")
	if err := sample.Write(path, sample.Export{Station: "S", Date: 45306, Tags: tags, Rows: scada.MinutesPerDay}); err != nil {
		b.Fatal(err)
	}
	tf := newTransformer(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tf.TransformFile(path, "BGM", scada.NewTable()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTimeIntervals(b *testing.B) {
	for i := 0; i < b.N; i++ {
		scada.TimeIntervals(scada.MinutesPerDay)
	}
}

// --- Batch benchmarks ---

func BenchmarkTableWriteFile(b *testing.B) {
	path := filepath.Join(b.TempDir(), "station.xlsx")
	if err := sample.Write(path, sample.Export{Station: "S", Date: 45306, Tags: tags, Rows: scada.MinutesPerDay}); err != nil {
		b.Fatal(err)
	}
	table := scada.NewTable()
	if _, err := newTransformer(b).TransformFile(path, "BGM", table); err != nil {
		b.Fatal(err)
	}
	out := filepath.Join(b.TempDir(), scada.BatchFileName(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := table.WriteFile(out, scada.BatchSheetName(1)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConvertZone(b *testing.B) {
	in := filepath.Join(b.TempDir(), "BGM_testing")
	if err := os.MkdirAll(in, 0755); err != nil {
		b.Fatal(err)
	}
	if _, err := sample.Zone(in, 10, tags, scada.MinutesPerDay); err != nil {
		b.Fatal(err)
	}
	conv, err := scada.NewConverter(newTransformer(b), scada.Options{BatchSize: scada.DefaultBatchSize})
	if err != nil {
		b.Fatal(err)
	}
	zone := scada.NewZone(in, filepath.Join(b.TempDir(), "output_BGM"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := conv.ConvertZone(context.Background(), zone); err != nil {
			b.Fatal(err)
		}
	}
}
