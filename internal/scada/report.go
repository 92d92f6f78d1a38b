package scada

// FileFailure records an input file that could not be converted.
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BatchResult describes one batch of a zone.
type BatchResult struct {
	Number    int           `json:"number"`
	Path      string        `json:"path,omitempty"`
	Converted []string      `json:"converted"`
	Skipped   []string      `json:"skipped,omitempty"`
	Failed    []FileFailure `json:"failed,omitempty"`
	Rows      int           `json:"rows"`
	Written   bool          `json:"written"`
}

// ZoneResult describes the conversion of one zone folder.
type ZoneResult struct {
	Zone    string        `json:"zone"`
	Input   string        `json:"input"`
	Output  string        `json:"output"`
	Batches []BatchResult `json:"batches"`
	Error   string        `json:"error,omitempty"`
}

// Report is the outcome of a Run, one entry per zone in input order.
type Report struct {
	RunID string       `json:"runId"`
	Zones []ZoneResult `json:"zones"`
}

// Totals aggregates counts across all zones.
type Totals struct {
	Zones     int `json:"zones"`
	Batches   int `json:"batches"`
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Rows      int `json:"rows"`
	Errors    int `json:"errors"`
}

// Totals sums the report. Only written batches count towards Batches.
func (r *Report) Totals() Totals {
	t := Totals{Zones: len(r.Zones)}
	for _, z := range r.Zones {
		if z.Error != "" {
			t.Errors++
		}
		for _, b := range z.Batches {
			if b.Written {
				t.Batches++
				t.Rows += b.Rows
			}
			t.Converted += len(b.Converted)
			t.Skipped += len(b.Skipped)
			t.Failed += len(b.Failed)
		}
	}
	return t
}
