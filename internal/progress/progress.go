// Package progress renders conversion progress on stderr.
// Bars are disabled when stderr is not a terminal so logs and pipes stay clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Bar renders a single-line ASCII progress bar.
type Bar struct {
	Label   string
	Total   int
	Current int
	Width   int
	Enabled bool
	Out     io.Writer

	mu     sync.Mutex
	status string
}

// Set moves the bar to n of total and redraws. total may change between
// calls; n is capped at total.
func (b *Bar) Set(n, total int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Total = total
	b.Current = min(n, total)
	b.render(status)
}

// Finish ends the bar line with a summary.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled {
		return
	}
	fmt.Fprintf(b.Out, "\r\033[K✓ %s\n", summary)
}

// Pct returns the completion percentage.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

// redraw repeats the last render, e.g. after another line was printed.
func (b *Bar) redraw() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.render(b.status)
}

func (b *Bar) render(status string) {
	b.status = status
	if !b.Enabled {
		return
	}

	filled := 0
	if b.Total > 0 {
		filled = b.Current * b.Width / b.Total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.Width-filled)
	fmt.Fprintf(b.Out, "\r\033[K%s [%s] %d/%d  %s", b.Label, bar, b.Current, b.Total, status)
}

// Zones tracks one bar per zone. Only the most recently updated zone is
// drawn, so concurrent zones share a single terminal line.
type Zones struct {
	enabled bool
	out     io.Writer

	mu   sync.Mutex
	bars map[string]*Bar
	live *Bar // bar currently on screen, nil once finished
}

// NewZones creates a tracker on stderr. Pass enabled=false to force it off,
// e.g. when JSON output is requested. Bars are also off when stderr is not a
// TTY or SCADAFLAT_NO_PROGRESS=1 is set.
func NewZones(enabled bool) *Zones {
	return &Zones{
		enabled: enabled && shouldEnable(os.Stderr),
		out:     os.Stderr,
		bars:    make(map[string]*Bar),
	}
}

// Enabled reports whether bars are drawn.
func (z *Zones) Enabled() bool { return z.enabled }

// Update records that done of total files of zone were handled.
func (z *Zones) Update(zone string, done, total int, path string) {
	z.mu.Lock()
	defer z.mu.Unlock()

	b, ok := z.bars[zone]
	if !ok {
		b = &Bar{Label: zone, Width: 30, Enabled: z.enabled, Out: z.out}
		z.bars[zone] = b
	}

	b.Set(done, total, baseName(path))
	z.live = b
	if done == total {
		b.Finish(fmt.Sprintf("%s: %d file(s)", zone, total))
		z.live = nil
	}
}

// Writer wraps w, the terminal the bars draw on, so that each write
// clears the bar line first and redraws the live bar after it. Log
// records stay readable while conversion is in progress.
func (z *Zones) Writer(w io.Writer) io.Writer {
	if !z.enabled {
		return w
	}
	return &lineWriter{z: z, w: w}
}

type lineWriter struct {
	z *Zones
	w io.Writer
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.z.mu.Lock()
	defer lw.z.mu.Unlock()

	if lw.z.live != nil {
		fmt.Fprint(lw.w, "\r\033[K")
	}
	n, err := lw.w.Write(p)
	if lw.z.live != nil {
		lw.z.live.redraw()
	}
	return n, err
}

// Done clears the progress line.
func (z *Zones) Done() {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.enabled && len(z.bars) > 0 {
		fmt.Fprint(z.out, "\r\033[K")
	}
	z.live = nil
}

// Bar returns the bar of zone, or nil if it never reported progress.
func (z *Zones) Bar(zone string) *Bar {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.bars[zone]
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func shouldEnable(f *os.File) bool {
	if os.Getenv("SCADAFLAT_NO_PROGRESS") == "1" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
