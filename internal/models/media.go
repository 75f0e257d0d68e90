package models

import (
	"time"

	"gorm.io/gorm"
)

// Media is the catalogue entry for an uploaded asset. Only metadata lives
// here; the file itself is in object storage under Key.
type Media struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganisationID  uint   `json:"organisation_id" gorm:"index"`
	Name            string `json:"name" gorm:"index;not null"`
	Kind            string `json:"kind" gorm:"type:varchar(20);default:'image'"` // image, video, web
	Key             string `json:"key" gorm:"uniqueIndex;not null"`
	ContentType     string `json:"content_type"`
	SizeBytes       int64  `json:"size_bytes"`
	DurationSeconds int    `json:"duration_seconds"`
}
