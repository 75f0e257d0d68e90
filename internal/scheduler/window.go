package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrDate        = errors.New("date must be YYYY-MM-DD")
	ErrWindowOrder = errors.New("active window ends before it starts")
)

// ActiveBetween is an absolute, non-recurring activation window. A nil or
// empty date leaves that side unbounded. A missing from time means 00:00:00.000
// and a missing to time means 23:59:59.999.
type ActiveBetween struct {
	FromDate *string `json:"from_date" yaml:"from_date"`
	FromTime *string `json:"from_time" yaml:"from_time"`
	ToDate   *string `json:"to_date" yaml:"to_date"`
	ToTime   *string `json:"to_time" yaml:"to_time"`
}

// boundary is a resolved instant. An unparseable date or time yields an
// invalid boundary and every comparison against it reports false.
type boundary struct {
	at    time.Time
	valid bool
}

func (b boundary) after(t time.Time) bool  { return b.valid && b.at.After(t) }
func (b boundary) before(t time.Time) bool { return b.valid && b.at.Before(t) }

// notAfter reports b <= t.
func (b boundary) notAfter(t time.Time) bool { return b.valid && !b.at.After(t) }

// notBefore reports b >= t.
func (b boundary) notBefore(t time.Time) bool { return b.valid && !b.at.Before(t) }

func value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (ab *ActiveBetween) hasFrom() bool { return ab != nil && value(ab.FromDate) != "" }
func (ab *ActiveBetween) hasTo() bool   { return ab != nil && value(ab.ToDate) != "" }

// IsZero reports a window with neither bound set.
func (ab *ActiveBetween) IsZero() bool { return !ab.hasFrom() && !ab.hasTo() }

// endOfDay is 23:59:59.999 wall-clock on t's date. DST days are 23 or 25
// hours long, so it cannot be derived by adding a duration to midnight.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func resolve(date, clock string, toSide bool, loc *time.Location) boundary {
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return boundary{}
	}
	if clock == "" {
		if toSide {
			return boundary{at: endOfDay(day), valid: true}
		}
		return boundary{at: day, valid: true}
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, clock); err == nil {
			at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
			return boundary{at: at, valid: true}
		}
	}
	return boundary{}
}

func (ab *ActiveBetween) fromBoundary(loc *time.Location) boundary {
	return resolve(value(ab.FromDate), value(ab.FromTime), false, loc)
}

func (ab *ActiveBetween) toBoundary(loc *time.Location) boundary {
	return resolve(value(ab.ToDate), value(ab.ToTime), true, loc)
}

// Validate rejects unparseable dates and times, a time without its date,
// and a window whose end precedes its start. Evaluation never calls it: a
// malformed window simply never matches.
func (ab *ActiveBetween) Validate() error {
	if ab == nil {
		return nil
	}
	for _, side := range []struct {
		name       string
		date, time *string
	}{
		{"from", ab.FromDate, ab.FromTime},
		{"to", ab.ToDate, ab.ToTime},
	} {
		d, t := value(side.date), value(side.time)
		if d != "" {
			if _, err := time.Parse(dateLayout, d); err != nil {
				return fmt.Errorf("%s_date %q: %w", side.name, d, ErrDate)
			}
		}
		if t != "" {
			if d == "" {
				return fmt.Errorf("%s_time without %s_date: %w", side.name, side.name, ErrDate)
			}
			if _, ok := ParseClock(t); !ok {
				return fmt.Errorf("%s_time %q: %w", side.name, t, ErrClockTime)
			}
		}
	}
	if ab.hasFrom() && ab.hasTo() && ab.toBoundary(time.UTC).before(ab.fromBoundary(time.UTC).at) {
		return ErrWindowOrder
	}
	return nil
}

// IsOutsideAt reports whether ref falls before the from bound or after the
// to bound. Bounds are interpreted in ref's location.
func (ab *ActiveBetween) IsOutsideAt(ref time.Time) bool {
	if ab == nil {
		return false
	}
	loc := ref.Location()
	if ab.hasFrom() && ab.fromBoundary(loc).after(ref) {
		return true
	}
	if ab.hasTo() && ab.toBoundary(loc).before(ref) {
		return true
	}
	return false
}

// IsOutsideNow is IsOutsideAt for the clock's current time.
func (ab *ActiveBetween) IsOutsideNow(clock Clock) bool {
	return ab.IsOutsideAt(clock.Now())
}

// IsDateInActivePeriod reports whether any part of date's calendar day
// overlaps the window. A nil window places no restriction.
func IsDateInActivePeriod(date time.Time, ab *ActiveBetween) bool {
	if ab == nil {
		return true
	}

	loc := date.Location()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := endOfDay(dayStart)

	switch {
	case ab.hasFrom() && ab.hasTo():
		return ab.toBoundary(loc).notBefore(dayStart) && ab.fromBoundary(loc).notAfter(dayEnd)
	case ab.hasFrom():
		return ab.fromBoundary(loc).notAfter(dayEnd)
	case ab.hasTo():
		return ab.toBoundary(loc).notBefore(dayStart)
	}
	// Callers check IsZero first; an empty window matches nothing.
	return false
}

// FormatActiveWindow renders the window for display.
func FormatActiveWindow(ab *ActiveBetween) string {
	switch {
	case ab.hasFrom() && ab.hasTo():
		return joinNonEmpty(value(ab.FromDate), value(ab.FromTime)) + " - " +
			joinNonEmpty(value(ab.ToDate), value(ab.ToTime))
	case ab.hasFrom():
		return "From " + value(ab.FromDate) + " onwards"
	case ab.hasTo():
		return "Until " + value(ab.ToDate)
	}
	return ""
}

func joinNonEmpty(a, b string) string {
	if b == "" {
		return a
	}
	return a + " " + b
}
