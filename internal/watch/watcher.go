// Package watch re-runs zone conversions when spreadsheets in a zone's input
// folder are created or modified.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/klytics/scadaflat/internal/logging"
	"github.com/klytics/scadaflat/internal/scada"
	"github.com/klytics/scadaflat/internal/sheet"
)

// Handler converts one zone. It is never called concurrently.
type Handler func(ctx context.Context, zone scada.Zone) error

// Event records a conversion triggered by a file change.
type Event struct {
	Time      time.Time `json:"time"`
	Zone      string    `json:"zone"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "converted", "error"
	Error     string    `json:"error,omitempty"`
}

// batchFile matches workbooks written by the converter, so a zone whose
// output folder lives inside its input folder does not retrigger itself.
var batchFile = regexp.MustCompile(`^Batch_\d+_Extracted_SCADA_Tag_Data\.xlsx$`)

// Watcher monitors zone input folders.
type Watcher struct {
	Zones    []scada.Zone
	Debounce time.Duration
	Handler  Handler
	Logger   *slog.Logger

	mu     sync.Mutex
	runMu  sync.Mutex
	fsw    *fsnotify.Watcher
	byDir  map[string]scada.Zone
	timers map[string]*time.Timer
	events []Event
}

// New creates a Watcher for zones. A debounce of zero defaults to 500ms.
func New(zones []scada.Zone, debounce time.Duration, handler Handler) (*Watcher, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("no zones to watch")
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	byDir := make(map[string]scada.Zone, len(zones))
	for _, z := range zones {
		abs, err := filepath.Abs(z.Input)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", z.Input, err)
		}
		byDir[abs] = z
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	return &Watcher{
		Zones:    zones,
		Debounce: debounce,
		Handler:  handler,
		Logger:   logging.Discard(),
		fsw:      fsw,
		byDir:    byDir,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start watches every zone folder until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for dir := range w.byDir {
		if err := w.fsw.Add(dir); err != nil {
			w.fsw.Close()
			return &scada.DirectoryReadError{Dir: dir, Err: err}
		}
	}

	w.Logger.Info("watching zone folders", slog.Int("zones", len(w.byDir)))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return w.fsw.Close()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	path := event.Name
	if !w.relevant(path) {
		return
	}

	zone, ok := w.byDir[filepath.Dir(path)]
	if !ok {
		return
	}

	// Coalesce bursts per zone: a copy of 50 files triggers one run.
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[zone.Input]; ok {
		timer.Stop()
	}
	op := strings.ToLower(event.Op.String())
	w.timers[zone.Input] = time.AfterFunc(w.Debounce, func() {
		w.convert(ctx, zone, path, op)
	})
}

func (w *Watcher) relevant(path string) bool {
	if !sheet.Supported(path) {
		return false
	}
	return !batchFile.MatchString(filepath.Base(path))
}

func (w *Watcher) convert(ctx context.Context, zone scada.Zone, path, op string) {
	if ctx.Err() != nil {
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	evt := Event{Time: time.Now(), Zone: zone.Name, Path: path, Operation: op, Status: "converted"}
	if w.Handler != nil {
		if err := w.Handler(ctx, zone); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.Logger.Error("zone conversion failed", slog.String("zone", zone.Name), slog.Any("error", err))
		} else {
			w.Logger.Info("zone converted", slog.String("zone", zone.Name), slog.String("trigger", path))
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.timers {
		t.Stop()
	}
}

// Events returns a copy of all recorded events.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}

const pidFile = "watch.pid"

// WritePIDFile writes the current process ID into dir.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, pidFile), []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID written by WritePIDFile.
func ReadPIDFile(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file from dir.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}

// DefaultStateDir is where the PID file lives.
func DefaultStateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scadaflat")
}
