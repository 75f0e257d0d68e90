package scheduler

import (
	"sort"
	"strings"
	"time"
)

// Convention names how a day-of-week integer is numbered.
type Convention string

const (
	// SundayFirst numbers days like time.Weekday: 0 = Sunday ... 6 = Saturday.
	SundayFirst Convention = "sunday-first"
	// MondayFirst numbers days ISO style: 0 = Monday ... 6 = Sunday.
	MondayFirst Convention = "monday-first"
)

var dayLabels = map[Convention][7]string{
	SundayFirst: {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	MondayFirst: {"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
}

// OrDefault returns SundayFirst for an unset convention.
func (c Convention) OrDefault() Convention {
	if c == "" {
		return SundayFirst
	}
	return c
}

// Known reports whether c is one of the two supported conventions (or unset).
func (c Convention) Known() bool {
	switch c {
	case "", SundayFirst, MondayFirst:
		return true
	}
	return false
}

// Day is a day-of-week value tagged with the convention it was written in.
type Day struct {
	Convention Convention
	Value      int
}

// Normalize converts d into the given convention.
func (d Day) Normalize(to Convention) Day {
	from, to := d.Convention.OrDefault(), to.OrDefault()
	if from == to {
		return Day{Convention: to, Value: d.Value}
	}
	if from == SundayFirst {
		return Day{Convention: to, Value: (d.Value + 6) % 7}
	}
	return Day{Convention: to, Value: (d.Value + 1) % 7}
}

// WeekdayOf returns the day value of t in convention c.
func WeekdayOf(t time.Time, c Convention) int {
	return Day{Convention: SundayFirst, Value: int(t.Weekday())}.Normalize(c).Value
}

// NormalizeDays converts a day set between conventions. Out-of-range values
// are passed through untouched so that validation can still report them.
func NormalizeDays(days []int, from, to Convention) []int {
	if days == nil {
		return nil
	}
	out := make([]int, len(days))
	for i, v := range days {
		if v < 0 || v > 6 {
			out[i] = v
			continue
		}
		out[i] = Day{Convention: from, Value: v}.Normalize(to).Value
	}
	return out
}

// FormatDays renders a day set for display: "Every day" when all seven days are
// present, otherwise the short labels in the convention's order.
func FormatDays(days []int, conv Convention, fallback string) string {
	labels := dayLabels[conv.OrDefault()]

	seen := make(map[int]bool, 7)
	for _, v := range days {
		if v >= 0 && v <= 6 {
			seen[v] = true
		}
	}
	if len(seen) == 0 {
		return fallback
	}
	if len(seen) == 7 {
		return "Every day"
	}

	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Ints(values)

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = labels[v]
	}
	return strings.Join(parts, ", ")
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
