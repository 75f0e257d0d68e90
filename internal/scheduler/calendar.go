package scheduler

import "time"

// MaxCalendarDays caps a single BuildCalendar call.
const MaxCalendarDays = 366

// CalendarDay combines the recurrence outcome and the absolute window for
// one date. Playing is true only when both allow it.
type CalendarDay struct {
	Date           string       `json:"date"`
	Play           DayPlayState `json:"play"`
	InActivePeriod bool         `json:"in_active_period"`
	Playing        bool         `json:"playing"`
}

// BuildCalendar evaluates every date in [from, to], inclusive, at day
// granularity in from's location.
func BuildCalendar(from, to time.Time, tags []TimeTag, window *ActiveBetween) []CalendarDay {
	loc := from.Location()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)

	var days []CalendarDay
	for !day.After(last) && len(days) < MaxCalendarDays {
		play := EvaluateDay(day, tags)
		inPeriod := window.IsZero() || IsDateInActivePeriod(day, window)
		days = append(days, CalendarDay{
			Date:           day.Format(dateLayout),
			Play:           play,
			InActivePeriod: inPeriod,
			Playing:        inPeriod && play.State != PlayNone,
		})
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// ParseDate parses a "YYYY-MM-DD" calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, loc)
}
