package ingest

import "time"

// Band classifies an hour by how far it sits behind the target horizon,
// which in turn selects which upstream family supplies it. Grounded on
// spec.md §4.8's HOT/WARM/COLD state machine.
type Band string

const (
	BandHOT  Band = "HOT"
	BandWARM Band = "WARM"
	BandCOLD Band = "COLD"
)

// selectBand classifies hourStart relative to the target horizon T and the
// configured warm-day window.
//
// HOT is the hour containing T (T's own hour is always still "forming" or
// just-closed from the orchestrator's perspective). WARM is every closed
// hour within warmDays of T but outside HOT. Everything older is COLD.
func selectBand(hourStart, target time.Time, warmDays int) Band {
	hotHour := target.Truncate(time.Hour)
	if !hourStart.Before(hotHour) {
		return BandHOT
	}
	warmBoundary := hotHour.Add(-time.Duration(warmDays) * 24 * time.Hour)
	if hourStart.Before(warmBoundary) {
		return BandCOLD
	}
	return BandWARM
}
