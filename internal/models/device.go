package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is a screen/player registered to an organisation.
type Device struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UUID is the key a player uses to fetch its manifest.
	UUID           uuid.UUID  `json:"uuid" gorm:"type:varchar(36);uniqueIndex"`
	Name           string     `json:"name" gorm:"index;not null"`
	OrganisationID uint       `json:"organisation_id" gorm:"index"`
	PlaylistID     *uint      `json:"playlist_id" gorm:"index"`
	Playlist       *Playlist  `json:"playlist,omitempty"`
	LastSeenAt     *time.Time `json:"last_seen_at"`
}

// BeforeCreate assigns a registration key when none was given.
func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	return nil
}
