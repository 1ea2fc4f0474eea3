package slot

import "time"

// Interval is a half-open busy window fetched from the calendar provider.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Scan marks each candidate instance unavailable when it overlaps any busy
// interval. The result is advisory: the commit path re-checks the window
// under the reservation lock.
//
// Overlap test: slotStart < eventEnd && slotEnd > eventStart. Intervals that
// merely touch at a boundary (slotEnd == eventStart or slotStart == eventEnd)
// are NOT conflicts; the equality cases are excluded explicitly so the rule
// holds regardless of how callers represent half-open intervals.
func Scan(instances []Instance, busy []Interval) []Instance {
	out := make([]Instance, len(instances))
	copy(out, instances)

	for i := range out {
		out[i].Available = true
		for _, b := range busy {
			if touches(out[i], b) {
				continue
			}
			if out[i].Start.Before(b.End) && out[i].End.After(b.Start) {
				out[i].Available = false
				break
			}
		}
	}
	return out
}

// touches reports whether the slot and the busy interval share only a
// boundary instant.
func touches(s Instance, b Interval) bool {
	return s.End.Equal(b.Start) || s.Start.Equal(b.End)
}
