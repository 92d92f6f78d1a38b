package scada

import "fmt"

// MinutesPerDay is the number of data rows in a full-day export.
const MinutesPerDay = 24 * 60

// TimeIntervals returns n one-minute labels "HH:MM - HH:MM" starting at
// "00:00 - 00:01". Labels follow the clock face, so the last interval of a
// day is "23:59 - 00:00".
func TimeIntervals(n int) []string {
	if n <= 0 {
		return nil
	}

	out := make([]string, n)
	for i := range out {
		out[i] = clock(i) + " - " + clock(i+1)
	}
	return out
}

func clock(minute int) string {
	m := minute % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
