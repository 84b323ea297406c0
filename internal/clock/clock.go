// Package clock provides the minute/hour time primitives shared by every
// component that has to agree on partition boundaries.
package clock

import "time"

// FloorToMinute truncates t down to the start of its UTC minute.
func FloorToMinute(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), 0, 0, time.UTC)
}

// FloorToHour truncates t down to the start of its UTC hour.
func FloorToHour(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC)
}

// IterHours returns every hour-start from start (inclusive, floored) up to
// and including end (floored), ascending. Returns nil if end is before
// start once both are floored.
func IterHours(start, end time.Time) []time.Time {
	s := FloorToHour(start)
	e := FloorToHour(end)
	if e.Before(s) {
		return nil
	}
	var out []time.Time
	for h := s; !h.After(e); h = h.Add(time.Hour) {
		out = append(out, h)
	}
	return out
}

// MinuteEpochMS returns t's floored-minute Unix timestamp in milliseconds.
func MinuteEpochMS(t time.Time) int64 {
	return FloorToMinute(t).UnixMilli()
}

// DenseMinutes returns every minute-start in [start, end], inclusive on both
// ends once floored.
func DenseMinutes(start, end time.Time) []time.Time {
	s := FloorToMinute(start)
	e := FloorToMinute(end)
	if e.Before(s) {
		return nil
	}
	out := make([]time.Time, 0, int(e.Sub(s)/time.Minute)+1)
	for m := s; !m.After(e); m = m.Add(time.Minute) {
		out = append(out, m)
	}
	return out
}
