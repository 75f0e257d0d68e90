package scheduler

// FormatRange renders a time range for display.
func FormatRange(r *TimeRange, fallback string) string {
	if r == nil {
		return fallback
	}
	switch {
	case r.Start != "" && r.End != "":
		return string(r.Start) + " - " + string(r.End)
	case r.Start != "":
		return string(r.Start) + " onwards"
	case r.End != "":
		return "Until " + string(r.End)
	}
	return fallback
}

// FormatCondition renders one condition the way the tag editor lists it,
// e.g. "Exclude: Sat, Sun" or "Include: Every day, 06:00 - 12:00".
func FormatCondition(c Condition, conv Convention) string {
	label := "Include"
	if c.Type == Exclude {
		label = "Exclude"
	}
	text := label + ": " + FormatDays(c.Days, conv, "Every day")
	if c.Time != nil {
		text += ", " + FormatRange(c.Time, "All day")
	}
	return text
}
