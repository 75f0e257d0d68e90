package models

import (
	"time"

	"gorm.io/gorm"

	"signage-cms/internal/scheduler"
)

// TimeTagDef is an entry of the reusable tag library. Playlists copy tags by
// value, so editing a definition never changes an already scheduled playlist.
type TimeTagDef struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// OrganisationID 0 is the shared library.
	OrganisationID uint                  `gorm:"uniqueIndex:idx_timetag_org_name;default:0" json:"organisation_id"`
	Name           string                `gorm:"type:varchar(255);not null;uniqueIndex:idx_timetag_org_name" json:"name"`
	Color          string                `gorm:"type:varchar(20);default:'#718096'" json:"color"`
	Notes          string                `gorm:"type:text" json:"notes"`
	Conditions     []scheduler.Condition `gorm:"serializer:json" json:"conditions"`
}

func (TimeTagDef) TableName() string {
	return "time_tags"
}

// TimeTag converts the definition into the evaluator's value type.
func (d TimeTagDef) TimeTag() scheduler.TimeTag {
	return scheduler.TimeTag{Name: d.Name, Conditions: d.Conditions, Notes: d.Notes}
}
