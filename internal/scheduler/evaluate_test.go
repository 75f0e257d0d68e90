package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Anchor week: Mon 2025-11-17 ... Sun 2025-11-23.
var (
	monday    = time.Date(2025, 11, 17, 10, 0, 0, 0, time.UTC)
	wednesday = time.Date(2025, 11, 19, 10, 0, 0, 0, time.UTC)
	saturday  = time.Date(2025, 11, 22, 10, 0, 0, 0, time.UTC)
)

func tagNames(tags []TimeTag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func TestEvaluateDay_EmptyRuleSet(t *testing.T) {
	for _, date := range []time.Time{monday, wednesday, saturday, {}} {
		got := EvaluateDay(date, nil)
		assert.Equal(t, PlayFull, got.State)
		assert.Empty(t, got.ActiveTags)
		assert.Empty(t, got.TimeRanges)
		assert.NotNil(t, got.ActiveTags)
		assert.NotNil(t, got.TimeRanges)
	}
}

func TestEvaluateDay(t *testing.T) {
	weekend := TimeTag{Name: "Weekend", Conditions: []Condition{{Type: Exclude, Days: []int{0, 6}}}}
	weekday := TimeTag{Name: "Weekday", Conditions: []Condition{{Type: Include, Days: []int{1, 2, 3, 4, 5}}}}
	morning := TimeTag{Name: "Morning", Conditions: []Condition{{Type: Include, Time: &TimeRange{Start: "06:00", End: "12:00"}}}}
	always := NewTimeTag("Always", Include)
	never := NewTimeTag("Blackout", Exclude)

	tests := []struct {
		name       string
		date       time.Time
		tags       []TimeTag
		wantState  PlayState
		wantTags   []string
		wantRanges []TimeRange
	}{
		{
			name:      "Weekend exclude on Wednesday plays",
			date:      wednesday,
			tags:      []TimeTag{weekend},
			wantState: PlayFull,
			wantTags:  []string{},
		},
		{
			name:      "Weekend exclude on Saturday blocks",
			date:      saturday,
			tags:      []TimeTag{weekend},
			wantState: PlayNone,
			wantTags:  []string{"Weekend"},
		},
		{
			name:      "Weekday include on Monday",
			date:      monday,
			tags:      []TimeTag{weekday},
			wantState: PlayFull,
			wantTags:  []string{"Weekday"},
		},
		{
			name:      "Weekday include on Saturday, tag still reported",
			date:      saturday,
			tags:      []TimeTag{weekday},
			wantState: PlayNone,
			wantTags:  []string{"Weekday"},
		},
		{
			name:       "Time only include is partial",
			date:       saturday,
			tags:       []TimeTag{morning},
			wantState:  PlayPartial,
			wantTags:   []string{"Morning"},
			wantRanges: []TimeRange{{Start: "06:00", End: "12:00"}},
		},
		{
			name:      "Full-day include",
			date:      monday,
			tags:      []TimeTag{always},
			wantState: PlayFull,
			wantTags:  []string{"Always"},
		},
		{
			name:      "Full-day exclude dominates includes",
			date:      monday,
			tags:      []TimeTag{always, weekday, morning, never},
			wantState: PlayNone,
			wantTags:  []string{"Always", "Weekday", "Morning", "Blackout"},
			wantRanges: []TimeRange{{Start: "06:00", End: "12:00"}},
		},
		{
			name:      "Full-day include with time include becomes partial",
			date:      monday,
			tags:      []TimeTag{always, morning},
			wantState: PlayPartial,
			wantTags:  []string{"Always", "Morning"},
			wantRanges: []TimeRange{{Start: "06:00", End: "12:00"}},
		},
		{
			name: "Time exclude alone is partial with no ranges",
			date: monday,
			tags: []TimeTag{{Name: "Lunch", Conditions: []Condition{
				{Type: Exclude, Time: &TimeRange{Start: "12:00", End: "13:00"}},
			}}},
			wantState: PlayPartial,
			wantTags:  []string{"Lunch"},
		},
		{
			name: "Day and time include adds range only on listed day",
			date: monday,
			tags: []TimeTag{{Name: "Monday Breakfast", Conditions: []Condition{
				{Type: Include, Days: []int{1}, Time: &TimeRange{Start: "07:00", End: "09:00"}},
			}}},
			wantState:  PlayPartial,
			wantTags:   []string{"Monday Breakfast"},
			wantRanges: []TimeRange{{Start: "07:00", End: "09:00"}},
		},
		{
			name: "Day and time include on other day is none",
			date: wednesday,
			tags: []TimeTag{{Name: "Monday Breakfast", Conditions: []Condition{
				{Type: Include, Days: []int{1}, Time: &TimeRange{Start: "07:00", End: "09:00"}},
			}}},
			wantState: PlayNone,
			wantTags:  []string{"Monday Breakfast"},
		},
		{
			name:      "Weekday include with weekend exclude on Monday",
			date:      monday,
			tags:      []TimeTag{weekday, weekend},
			wantState: PlayFull,
			wantTags:  []string{"Weekday"},
		},
		{
			name: "Late night range is carried literally",
			date: monday,
			tags: []TimeTag{{Name: "Late Night", Conditions: []Condition{
				{Type: Include, Time: &TimeRange{Start: "22:00", End: "06:00"}},
			}}},
			wantState:  PlayPartial,
			wantTags:   []string{"Late Night"},
			wantRanges: []TimeRange{{Start: "22:00", End: "06:00"}},
		},
		{
			name: "Empty days array means no day restriction",
			date: saturday,
			tags: []TimeTag{{Name: "Loose", Conditions: []Condition{
				{Type: Include, Days: []int{}},
			}}},
			wantState: PlayFull,
			wantTags:  []string{"Loose"},
		},
		{
			name: "Tag with unknown condition type contributes nothing",
			date: saturday,
			tags: []TimeTag{{Name: "Odd", Conditions: []Condition{
				{Type: "maybe", Days: []int{6}},
			}}},
			wantState: PlayNone,
			wantTags:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateDay(tt.date, tt.tags)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantTags, tagNames(got.ActiveTags))
			if tt.wantRanges == nil {
				assert.Empty(t, got.TimeRanges)
			} else {
				assert.Equal(t, tt.wantRanges, got.TimeRanges)
			}
		})
	}
}

func TestEvaluateDay_ExcludeRangesAreNotSubtracted(t *testing.T) {
	tags := []TimeTag{
		{Name: "Opening Hours", Conditions: []Condition{{Type: Include, Time: &TimeRange{Start: "09:00", End: "17:00"}}}},
		{Name: "Lunch", Conditions: []Condition{{Type: Exclude, Time: &TimeRange{Start: "12:00", End: "13:00"}}}},
	}

	got := EvaluateDay(monday, tags)

	assert.Equal(t, PlayPartial, got.State)
	assert.Equal(t, []TimeRange{{Start: "09:00", End: "17:00"}}, got.TimeRanges)
	assert.Equal(t, []string{"Opening Hours", "Lunch"}, tagNames(got.ActiveTags))
}

func TestEvaluateDay_DoesNotMutateInput(t *testing.T) {
	tags := []TimeTag{{Name: "Weekday", Conditions: []Condition{{Type: Include, Days: []int{5, 1, 3}}}}}

	_ = EvaluateDay(monday, tags)
	_ = EvaluateDay(saturday, tags)

	assert.Equal(t, []int{5, 1, 3}, tags[0].Conditions[0].Days)
}

func TestTagSet_EvaluateDay_MondayFirst(t *testing.T) {
	// ISO numbering: Saturday = 5, Sunday = 6.
	set := TagSet{
		Convention: MondayFirst,
		Tags:       []TimeTag{{Name: "Weekend", Conditions: []Condition{{Type: Exclude, Days: []int{5, 6}}}}},
	}
	require.NoError(t, set.Validate())

	assert.Equal(t, PlayNone, set.EvaluateDay(saturday).State)
	assert.Equal(t, PlayFull, set.EvaluateDay(wednesday).State)

	// The receiver keeps its own numbering.
	assert.Equal(t, []int{5, 6}, set.Tags[0].Conditions[0].Days)
}
