package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewZonesWithEnvDisable(t *testing.T) {
	t.Setenv("SCADAFLAT_NO_PROGRESS", "1")
	if NewZones(true).Enabled() {
		t.Error("expected bars to be disabled with SCADAFLAT_NO_PROGRESS=1")
	}
	if NewZones(false).Enabled() {
		t.Error("expected bars to be disabled when forced off")
	}
}

func TestBarSetCapsAtTotal(t *testing.T) {
	bar := &Bar{Width: 10}
	bar.Set(15, 10, "x.xlsx")
	if bar.Current != 10 {
		t.Errorf("expected current capped at 10, got %d", bar.Current)
	}
	if pct := bar.Pct(); pct != 100 {
		t.Errorf("expected 100%%, got %.1f%%", pct)
	}
}

func TestBarPctZeroTotal(t *testing.T) {
	bar := &Bar{Width: 10}
	if pct := bar.Pct(); pct != 0 {
		t.Errorf("expected 0%% for zero total, got %.1f%%", pct)
	}
}

func TestBarRender(t *testing.T) {
	var buf bytes.Buffer
	bar := &Bar{Label: "BGM", Width: 10, Enabled: true, Out: &buf}
	bar.Set(5, 10, "station_004.xlsx")

	out := buf.String()
	if !strings.Contains(out, "BGM [=====     ] 5/10  station_004.xlsx") {
		t.Errorf("unexpected render %q", out)
	}

	bar.Finish("BGM done")
	if !strings.HasSuffix(buf.String(), "✓ BGM done\n") {
		t.Errorf("unexpected finish %q", buf.String())
	}
}

func TestDisabledBarDoesNotWrite(t *testing.T) {
	var buf bytes.Buffer
	bar := &Bar{Width: 10, Enabled: false, Out: &buf}
	bar.Set(1, 10, "test")
	bar.Finish("done")
	if buf.Len() > 0 {
		t.Errorf("disabled bar should not write, wrote %q", buf.String())
	}
}

func TestZonesTracksPerZone(t *testing.T) {
	var buf bytes.Buffer
	z := &Zones{enabled: true, out: &buf, bars: map[string]*Bar{}}

	z.Update("BGM", 1, 3, "/in/BGM_testing/a.xlsx")
	z.Update("BGK", 2, 4, "/in/BGK_testing/b.xlsx")
	z.Update("BGM", 2, 3, `C:\in\BGM_testing\c.xlsx`)
	z.Done()

	if b := z.Bar("BGM"); b == nil || b.Current != 2 || b.Total != 3 {
		t.Errorf("unexpected BGM bar %+v", b)
	}
	if b := z.Bar("BGK"); b == nil || b.Current != 2 || b.Total != 4 {
		t.Errorf("unexpected BGK bar %+v", b)
	}
	if z.Bar("NONE") != nil {
		t.Error("unknown zone should have no bar")
	}
	if !strings.Contains(buf.String(), "c.xlsx") {
		t.Errorf("expected base name in output, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "BGK: 4 file(s)") {
		t.Error("unfinished zone should not print a summary")
	}

	z.Update("BGM", 3, 3, "d.xlsx")
	if !strings.Contains(buf.String(), "✓ BGM: 3 file(s)\n") {
		t.Errorf("expected finished zone summary, got %q", buf.String())
	}
}

func TestWriterRedrawsLiveBar(t *testing.T) {
	var buf bytes.Buffer
	z := &Zones{enabled: true, out: &buf, bars: map[string]*Bar{}}
	z.Update("BGM", 1, 3, "/in/BGM_testing/a.xlsx")
	buf.Reset()

	w := z.Writer(&buf)
	if _, err := w.Write([]byte("level=INFO msg=\"tags found\"\n")); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\r\033[Klevel=INFO msg=\"tags found\"\n") {
		t.Errorf("log line should replace the bar line, got %q", out)
	}
	if !strings.HasSuffix(out, "BGM [==========                    ] 1/3  a.xlsx") {
		t.Errorf("bar should be redrawn after the log line, got %q", out)
	}
}

func TestWriterAfterFinishPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	z := &Zones{enabled: true, out: &buf, bars: map[string]*Bar{}}
	z.Update("BGM", 1, 1, "a.xlsx")
	buf.Reset()

	w := z.Writer(&buf)
	w.Write([]byte("line\n"))
	if buf.String() != "line\n" {
		t.Errorf("expected plain write with no live bar, got %q", buf.String())
	}
}

func TestWriterDisabled(t *testing.T) {
	var buf bytes.Buffer
	z := &Zones{enabled: false, out: &buf, bars: map[string]*Bar{}}
	if z.Writer(&buf) != &buf {
		t.Error("disabled tracker should return the writer unchanged")
	}
}
