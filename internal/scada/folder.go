package scada

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Zone pairs an input folder with the folder its batches are written to.
type Zone struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// NewZone derives the zone name from the input folder.
func NewZone(input, output string) Zone {
	return Zone{Name: ZoneFromDir(input), Input: input, Output: output}
}

// ZoneFromDir returns the part of dir's base name before the first '_'.
func ZoneFromDir(dir string) string {
	zone, _, _ := strings.Cut(filepath.Base(dir), "_")
	return zone
}

// PairZones builds zones from positionally paired input and output folders.
func PairZones(inputs, outputs []string) ([]Zone, error) {
	if len(inputs) != len(outputs) {
		return nil, fmt.Errorf("got %d input folders but %d output folders, they are paired by position", len(inputs), len(outputs))
	}

	zones := make([]Zone, len(inputs))
	for i := range inputs {
		zones[i] = NewZone(inputs[i], outputs[i])
	}
	return zones, nil
}

// Run converts every zone and waits for all of them. A failing zone does not
// stop the others; the returned error joins every zone's error. Log records
// of the run carry its RunID.
func (c *Converter) Run(ctx context.Context, zones []Zone) (*Report, error) {
	report := &Report{RunID: uuid.New().String(), Zones: make([]ZoneResult, len(zones))}
	errs := make([]error, len(zones))

	run := *c
	run.logger = c.logger.With(slog.String("run", report.RunID))

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, z := range zones {
		i, z := i, z
		g.Go(func() error {
			// Each task owns its own slot.
			report.Zones[i], errs[i] = run.ConvertZone(ctx, z)
			return nil
		})
	}
	_ = g.Wait()

	return report, errors.Join(errs...)
}
