package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"signage-cms/internal/metrics"
	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

var ErrDeviceNotFound = errors.New("device not found")

// Reasons reported when a device is not playing.
const (
	ReasonNoPlaylist    = "no_playlist"
	ReasonOutsideWindow = "outside_active_window"
	ReasonExcludedToday = "excluded_today"
	ReasonOutsideRanges = "outside_time_ranges"
)

// NowPlaying describes what a device should be showing at a given instant.
type NowPlaying struct {
	DeviceID       uint                  `json:"device_id"`
	OrganisationID uint                  `json:"organisation_id"`
	PlaylistID     *uint                 `json:"playlist_id"`
	PlaylistName   string                `json:"playlist_name,omitempty"`
	At             time.Time             `json:"at"`
	State          scheduler.PlayState   `json:"state"`
	Playing        bool                  `json:"playing"`
	Reason         string                `json:"reason,omitempty"`
	ActiveTags     []string              `json:"active_tags"`
	TimeRanges     []scheduler.TimeRange `json:"time_ranges"`
	WindowText     string                `json:"window_text"`
}

type Manager struct {
	db    *gorm.DB
	clock scheduler.Clock
	loc   *time.Location
}

func NewManager(db *gorm.DB, clock scheduler.Clock, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{db: db, clock: clock, loc: loc}
}

// ForDevice resolves the device's playlist and evaluates it at the current
// time.
func (m *Manager) ForDevice(ctx context.Context, deviceID uint) (*NowPlaying, error) {
	var device models.Device
	err := m.db.WithContext(ctx).Preload("Playlist").First(&device, deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load device %d: %w", deviceID, err)
	}

	np := Resolve(m.clock.Now().In(m.loc), device.Playlist)
	np.DeviceID = device.ID
	np.OrganisationID = device.OrganisationID
	return &np, nil
}

// Resolve combines the day evaluation and the absolute window for one
// instant. Time ranges are compared literally (no midnight wraparound);
// with no include ranges a partial day plays throughout.
func Resolve(at time.Time, playlist *models.Playlist) NowPlaying {
	np := NowPlaying{At: at, ActiveTags: []string{}, TimeRanges: []scheduler.TimeRange{}}

	// 1. Nothing assigned
	if playlist == nil {
		np.State = scheduler.PlayNone
		np.Reason = ReasonNoPlaylist
		return np
	}
	np.PlaylistID = &playlist.ID
	np.PlaylistName = playlist.Name
	np.WindowText = scheduler.FormatActiveWindow(playlist.ActiveBetween)

	// 2. Recurrence rules for today
	day := scheduler.EvaluateDay(at, playlist.TimeTags)
	metrics.ObserveState(string(day.State))
	np.State = day.State
	np.TimeRanges = day.TimeRanges
	for _, t := range day.ActiveTags {
		np.ActiveTags = append(np.ActiveTags, t.Name)
	}

	// 3. Absolute window
	if playlist.ActiveBetween.IsOutsideAt(at) {
		np.Reason = ReasonOutsideWindow
		return np
	}

	switch day.State {
	case scheduler.PlayNone:
		np.Reason = ReasonExcludedToday
	case scheduler.PlayFull:
		np.Playing = true
	case scheduler.PlayPartial:
		if len(day.TimeRanges) == 0 {
			np.Playing = true
			break
		}
		now := scheduler.ClockOf(at)
		for _, r := range day.TimeRanges {
			if r.Contains(now) {
				np.Playing = true
				break
			}
		}
		if !np.Playing {
			np.Reason = ReasonOutsideRanges
		}
	}
	return np
}
