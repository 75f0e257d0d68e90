package scheduler

import "time"

type PlayState string

const (
	PlayFull    PlayState = "full"
	PlayPartial PlayState = "partial"
	PlayNone    PlayState = "none"
)

// DayPlayState is the outcome of evaluating a rule set for one date.
// ActiveTags lists the tags responsible for the outcome, whether they
// include or exclude. TimeRanges is only meaningful for PlayPartial.
type DayPlayState struct {
	State      PlayState   `json:"state"`
	ActiveTags []TimeTag   `json:"active_tags"`
	TimeRanges []TimeRange `json:"time_ranges"`
}

type tagCollector struct {
	seen map[string]bool
	tags []TimeTag
}

func (tc *tagCollector) add(t TimeTag) {
	if tc.seen[t.Name] {
		return
	}
	tc.seen[t.Name] = true
	tc.tags = append(tc.tags, t)
}

// EvaluateDay computes the play state of date for tags. Day values are read
// as SundayFirst; use TagSet.EvaluateDay for other conventions.
//
// Excludes are collected after all includes and take precedence. The
// function is total: malformed conditions only loosen restrictions.
func EvaluateDay(date time.Time, tags []TimeTag) DayPlayState {
	if len(tags) == 0 {
		return DayPlayState{State: PlayFull, ActiveTags: []TimeTag{}, TimeRanges: []TimeRange{}}
	}

	today := WeekdayOf(date, SundayFirst)
	active := &tagCollector{seen: make(map[string]bool)}

	var (
		hasFullDayInclude     bool
		hasDaySpecificInclude bool
		hasFullDayExclude     bool
		includeDays           []int
		includeRanges         = []TimeRange{}
		excludeRanges         []TimeRange
	)

	// 1. Includes
	for _, tag := range tags {
		for _, c := range tag.Conditions {
			if c.Type != Include {
				continue
			}
			switch {
			case c.IsFullDay():
				hasFullDayInclude = true
				active.add(tag)
			case c.hasDays():
				hasDaySpecificInclude = true
				includeDays = append(includeDays, c.Days...)
				// Added even when today is not listed, so the caller can show why.
				active.add(tag)
				if containsDay(c.Days, today) && c.hasTime() {
					includeRanges = append(includeRanges, *c.Time)
				}
			default:
				includeRanges = append(includeRanges, *c.Time)
				active.add(tag)
			}
		}
	}

	// 2. Excludes
	for _, tag := range tags {
		for _, c := range tag.Conditions {
			if c.Type != Exclude {
				continue
			}
			switch {
			case c.IsFullDay():
				hasFullDayExclude = true
				active.add(tag)
			case c.hasDays():
				if containsDay(c.Days, today) {
					hasFullDayExclude = true
					active.add(tag)
				}
			default:
				excludeRanges = append(excludeRanges, *c.Time)
				active.add(tag)
			}
		}
	}

	result := DayPlayState{
		ActiveTags: active.tags,
		TimeRanges: mergeTimeRanges(includeRanges, excludeRanges),
	}
	if result.ActiveTags == nil {
		result.ActiveTags = []TimeTag{}
	}

	switch {
	case hasFullDayExclude:
		result.State = PlayNone
	case hasDaySpecificInclude && !containsDay(includeDays, today):
		result.State = PlayNone
	case hasFullDayInclude && len(includeRanges) == 0 && len(excludeRanges) == 0:
		result.State = PlayFull
	case len(includeRanges) > 0 || len(excludeRanges) > 0:
		result.State = PlayPartial
	case hasDaySpecificInclude:
		result.State = PlayFull
	case hasUnboundDayExclude(tags, today):
		result.State = PlayFull
	default:
		result.State = PlayNone
	}
	return result
}

// mergeTimeRanges returns the include ranges unchanged. Exclude ranges only
// ever affect day-level gating; they are not carved out of include ranges.
func mergeTimeRanges(include, _ []TimeRange) []TimeRange {
	return include
}

// hasUnboundDayExclude reports a day-specific exclude that does not list today.
func hasUnboundDayExclude(tags []TimeTag, today int) bool {
	for _, tag := range tags {
		for _, c := range tag.Conditions {
			if c.Type == Exclude && c.hasDays() && !containsDay(c.Days, today) {
				return true
			}
		}
	}
	return false
}
