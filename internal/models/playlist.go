package models

import (
	"time"

	"gorm.io/gorm"

	"signage-cms/internal/scheduler"
)

// Playlist is a curated, scheduled sequence of media shown on devices.
type Playlist struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // Hiding DeletedAt from the API

	OrganisationID uint   `json:"organisation_id" gorm:"index"`
	Name           string `json:"name" gorm:"not null"`
	Description    string `json:"description"`
	Color          string `json:"color" gorm:"default:'#3182ce'"`
	TotalDuration  int    `json:"total_duration"`

	// Day values are stored SundayFirst; input in other conventions is
	// normalised before it gets here.
	TimeTags      []scheduler.TimeTag      `json:"time_tags" gorm:"serializer:json"`
	ActiveBetween *scheduler.ActiveBetween `json:"active_between" gorm:"serializer:json"`

	Items []PlaylistItem `json:"items,omitempty" gorm:"foreignKey:PlaylistID"`
}

// PlaylistItem is one slot in a playlist's running order. A media may fill
// several slots, so items carry their own key.
type PlaylistItem struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	PlaylistID      uint   `gorm:"index" json:"playlist_id"`
	MediaID         uint   `gorm:"index" json:"media_id"`
	SortOrder       int    `json:"sort_order"`
	DurationSeconds int    `json:"duration_seconds"`
	Media           *Media `json:"media,omitempty"`
}
