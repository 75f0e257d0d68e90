package database

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"

	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

// TimeTagLibrary matches the YAML seed file:
//
//	convention: sunday-first
//	timetags:
//	  - name: Weekend
//	    color: "#e53e3e"
//	    conditions:
//	      - type: exclude
//	        days: [0, 6]
type TimeTagLibrary struct {
	Convention scheduler.Convention `yaml:"convention"`
	TimeTags   []TimeTagSeed        `yaml:"timetags"`
}

type TimeTagSeed struct {
	Name       string                `yaml:"name"`
	Color      string                `yaml:"color"`
	Notes      string                `yaml:"notes"`
	Conditions []scheduler.Condition `yaml:"conditions"`
}

func defaultLibrary() TimeTagLibrary {
	return TimeTagLibrary{
		Convention: scheduler.SundayFirst,
		TimeTags: []TimeTagSeed{
			{
				Name:       "Weekday",
				Color:      "#3182ce",
				Conditions: []scheduler.Condition{{Type: scheduler.Include, Days: []int{1, 2, 3, 4, 5}}},
			},
			{
				Name:       "Weekend",
				Color:      "#e53e3e",
				Conditions: []scheduler.Condition{{Type: scheduler.Exclude, Days: []int{0, 6}}},
			},
			{
				Name:       "Morning",
				Color:      "#d69e2e",
				Conditions: []scheduler.Condition{{Type: scheduler.Include, Time: &scheduler.TimeRange{Start: "06:00", End: "12:00"}}},
			},
			{
				Name:  "Late Night",
				Color: "#553c9a",
				Notes: "Shown as 22:00 - 06:00; not evaluated across midnight.",
				Conditions: []scheduler.Condition{
					{Type: scheduler.Include, Time: &scheduler.TimeRange{Start: "22:00", End: "06:00"}},
				},
			},
		},
	}
}

// LoadTimeTagLibrary reads a YAML library and validates it.
func LoadTimeTagLibrary(path string) (TimeTagLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TimeTagLibrary{}, err
	}

	var lib TimeTagLibrary
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return TimeTagLibrary{}, fmt.Errorf("parse %s: %w", path, err)
	}

	set := scheduler.TagSet{Convention: lib.Convention}
	for _, t := range lib.TimeTags {
		set.Tags = append(set.Tags, scheduler.TimeTag{Name: t.Name, Conditions: t.Conditions, Notes: t.Notes})
	}
	if err := set.Validate(); err != nil {
		return TimeTagLibrary{}, fmt.Errorf("validate %s: %w", path, err)
	}
	return lib, nil
}

// SeedTimeTags populates the shared tag library. With an empty path the
// built-in defaults are used. Existing names are left alone.
func (c *Client) SeedTimeTags(path string) error {
	lib := defaultLibrary()
	if path != "" {
		loaded, err := LoadTimeTagLibrary(path)
		if err != nil {
			return err
		}
		lib = loaded
	}

	c.log.Info("seeding time tags", zap.Int("count", len(lib.TimeTags)))
	for _, t := range lib.TimeTags {
		conds := make([]scheduler.Condition, len(t.Conditions))
		for i, cond := range t.Conditions {
			cond.Days = scheduler.NormalizeDays(cond.Days, lib.Convention, scheduler.SundayFirst)
			conds[i] = cond
		}
		def := models.TimeTagDef{
			Name:       t.Name,
			Color:      t.Color,
			Notes:      t.Notes,
			Conditions: conds,
		}
		// UPSERT based on (organisation_id, name) to prevent duplicates on restart
		err := c.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organisation_id"}, {Name: "name"}},
			DoNothing: true,
		}).Create(&def).Error
		if err != nil {
			return fmt.Errorf("seed %s: %w", t.Name, err)
		}
	}
	return nil
}
