package scheduler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTagNameRequired  = errors.New("time tag name is required")
	ErrDuplicateTagName = errors.New("duplicate time tag name")
	ErrConditionType    = errors.New("condition type must be include or exclude")
	ErrDayOutOfRange    = errors.New("day of week must be between 0 and 6")
	ErrClockTime        = errors.New("time must be HH:MM")
	ErrConvention       = errors.New("unknown day-of-week convention")
)

type ConditionType string

const (
	Include ConditionType = "include"
	Exclude ConditionType = "exclude"
)

// Condition is one include/exclude rule of a time tag.
//
//	no days, no time -> whole day, every day
//	days only        -> whole listed days
//	time only        -> time window, every day
//	days and time    -> time window on the listed days
type Condition struct {
	Type ConditionType `json:"type" yaml:"type"`
	Days []int         `json:"days,omitempty" yaml:"days,omitempty"`
	Time *TimeRange    `json:"time,omitempty" yaml:"time,omitempty"`
}

func (c Condition) hasDays() bool { return len(c.Days) > 0 }

func (c Condition) hasTime() bool {
	return c.Time != nil && (c.Time.Start != "" || c.Time.End != "")
}

// IsFullDay reports a condition with neither days nor time.
func (c Condition) IsFullDay() bool {
	return !c.hasDays() && !c.hasTime()
}

// TimeTag is a named, reusable recurrence rule.
type TimeTag struct {
	Name       string      `json:"name" yaml:"name"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Notes      string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Validate checks a tag before it is stored. Evaluation never calls it.
func (t TimeTag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrTagNameRequired
	}
	for i, c := range t.Conditions {
		if c.Type != Include && c.Type != Exclude {
			return fmt.Errorf("%s: condition %d: %w", t.Name, i, ErrConditionType)
		}
		for _, d := range c.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("%s: condition %d: %w", t.Name, i, ErrDayOutOfRange)
			}
		}
		if c.Time != nil {
			if c.Time.Start != "" && !c.Time.Start.Valid() {
				return fmt.Errorf("%s: condition %d: start %q: %w", t.Name, i, c.Time.Start, ErrClockTime)
			}
			if c.Time.End != "" && !c.Time.End.Valid() {
				return fmt.Errorf("%s: condition %d: end %q: %w", t.Name, i, c.Time.End, ErrClockTime)
			}
		}
	}
	return nil
}

// PrimaryCondition returns the first condition of the tag, or nil.
func PrimaryCondition(tag *TimeTag) *Condition {
	if tag == nil || len(tag.Conditions) == 0 {
		return nil
	}
	return &tag.Conditions[0]
}

// TagType is the type of the primary condition, include when there is none.
func TagType(tag *TimeTag) ConditionType {
	if c := PrimaryCondition(tag); c != nil && c.Type != "" {
		return c.Type
	}
	return Include
}

// NewTimeTag wraps a bare name into a tag with one full-day condition.
func NewTimeTag(name string, fallback ConditionType) TimeTag {
	if fallback == "" {
		fallback = Include
	}
	return TimeTag{
		Name:       name,
		Conditions: []Condition{{Type: fallback}},
	}
}

// TagRef is how a playlist refers to a tag on the wire: either by name
// (a JSON string) or inline (a JSON object). It is resolved once, at decode
// time, so callers never inspect the shape again.
type TagRef struct {
	Name   string
	Inline *TimeTag
}

// NamedTag builds a by-name reference.
func NamedTag(name string) TagRef { return TagRef{Name: name} }

// InlineTag builds a reference carrying the whole tag.
func InlineTag(tag TimeTag) TagRef { return TagRef{Name: tag.Name, Inline: &tag} }

// IsInline reports whether the reference carries its own conditions.
func (r TagRef) IsInline() bool { return r.Inline != nil }

// Resolve returns the inline tag unchanged, or wraps the name.
func (r TagRef) Resolve(fallback ConditionType) TimeTag {
	if r.Inline != nil {
		return *r.Inline
	}
	return NewTimeTag(r.Name, fallback)
}

func (r *TagRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = NamedTag(name)
		return nil
	}
	var tag TimeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*r = InlineTag(tag)
	return nil
}

func (r TagRef) MarshalJSON() ([]byte, error) {
	if r.Inline != nil {
		return json.Marshal(r.Inline)
	}
	return json.Marshal(r.Name)
}

// TagSet is an ordered rule set whose day values share one convention.
type TagSet struct {
	Convention Convention `json:"convention,omitempty" yaml:"convention,omitempty"`
	Tags       []TimeTag  `json:"time_tags" yaml:"time_tags"`
}

// Validate checks the convention, every tag, and name uniqueness.
func (s TagSet) Validate() error {
	if !s.Convention.Known() {
		return fmt.Errorf("%q: %w", s.Convention, ErrConvention)
	}
	seen := make(map[string]bool, len(s.Tags))
	for _, t := range s.Tags {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.Name] {
			return fmt.Errorf("%s: %w", t.Name, ErrDuplicateTagName)
		}
		seen[t.Name] = true
	}
	return nil
}

// Normalize returns a copy of the set with every day value converted to the
// target convention. The receiver is not modified.
func (s TagSet) Normalize(to Convention) TagSet {
	from, to := s.Convention.OrDefault(), to.OrDefault()
	out := TagSet{Convention: to, Tags: make([]TimeTag, len(s.Tags))}
	for i, t := range s.Tags {
		conds := make([]Condition, len(t.Conditions))
		for j, c := range t.Conditions {
			c.Days = NormalizeDays(c.Days, from, to)
			conds[j] = c
		}
		t.Conditions = conds
		out.Tags[i] = t
	}
	return out
}

// EvaluateDay normalises the set to SundayFirst and evaluates it.
func (s TagSet) EvaluateDay(date time.Time) DayPlayState {
	return EvaluateDay(date, s.Normalize(SundayFirst).Tags)
}
