package scheduler

import (
	"strings"
	"time"
)

// ClockTime is a wall-clock value in "HH:MM" 24h form, zero padded.
// Canonical values order correctly with plain string comparison.
type ClockTime string

// ParseClock accepts "H:MM", "HH:MM" and "HH:MM:SS" and returns the canonical
// zero-padded "HH:MM" form.
func ParseClock(s string) (ClockTime, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(t.Format("15:04")), true
		}
	}
	return "", false
}

// Valid reports whether c is a parseable clock time.
func (c ClockTime) Valid() bool {
	_, ok := ParseClock(string(c))
	return ok
}

// Minutes returns minutes since midnight, or -1 for an invalid value.
func (c ClockTime) Minutes() int {
	canon, ok := ParseClock(string(c))
	if !ok {
		return -1
	}
	t, _ := time.Parse("15:04", string(canon))
	return t.Hour()*60 + t.Minute()
}

// ClockOf returns the wall-clock part of t.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Format("15:04"))
}

// TimeRange is an intra-day window. Either side may be empty.
// A range with Start after End is carried as-is; it is never treated as
// spanning midnight.
type TimeRange struct {
	Start ClockTime `json:"start,omitempty" yaml:"start,omitempty"`
	End   ClockTime `json:"end,omitempty" yaml:"end,omitempty"`
}

// Contains reports whether c lies in [Start, End). Open sides are unbounded.
// Ranges are compared literally: 22:00-06:00 contains nothing.
func (r TimeRange) Contains(c ClockTime) bool {
	m := c.Minutes()
	if m < 0 {
		return false
	}
	if r.Start != "" {
		s := r.Start.Minutes()
		if s < 0 || m < s {
			return false
		}
	}
	if r.End != "" {
		e := r.End.Minutes()
		if e < 0 || m >= e {
			return false
		}
	}
	return true
}
