package playback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

func setupPlaybackDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, d.AutoMigrate(&models.Playlist{}, &models.Device{}))
	return d
}

func str(s string) *string { return &s }

func TestResolve(t *testing.T) {
	// Saturday 2025-11-22.
	saturdayAt := func(h, m int) time.Time { return time.Date(2025, 11, 22, h, m, 0, 0, time.UTC) }

	weekend := scheduler.TimeTag{Name: "Weekend", Conditions: []scheduler.Condition{{Type: scheduler.Exclude, Days: []int{0, 6}}}}
	morning := scheduler.TimeTag{Name: "Morning", Conditions: []scheduler.Condition{
		{Type: scheduler.Include, Time: &scheduler.TimeRange{Start: "06:00", End: "12:00"}},
	}}
	lateNight := scheduler.TimeTag{Name: "Late Night", Conditions: []scheduler.Condition{
		{Type: scheduler.Include, Time: &scheduler.TimeRange{Start: "22:00", End: "06:00"}},
	}}
	lunch := scheduler.TimeTag{Name: "Lunch", Conditions: []scheduler.Condition{
		{Type: scheduler.Exclude, Time: &scheduler.TimeRange{Start: "12:00", End: "13:00"}},
	}}

	tests := []struct {
		name        string
		at          time.Time
		playlist    *models.Playlist
		wantPlaying bool
		wantReason  string
		wantState   scheduler.PlayState
	}{
		{"No playlist", saturdayAt(9, 0), nil, false, ReasonNoPlaylist, scheduler.PlayNone},
		{"No rules", saturdayAt(9, 0), &models.Playlist{Name: "Menu"}, true, "", scheduler.PlayFull},
		{"Weekend excluded", saturdayAt(9, 0), &models.Playlist{TimeTags: []scheduler.TimeTag{weekend}}, false, ReasonExcludedToday, scheduler.PlayNone},
		{"Inside morning", saturdayAt(9, 0), &models.Playlist{TimeTags: []scheduler.TimeTag{morning}}, true, "", scheduler.PlayPartial},
		{"After morning", saturdayAt(12, 0), &models.Playlist{TimeTags: []scheduler.TimeTag{morning}}, false, ReasonOutsideRanges, scheduler.PlayPartial},
		{"Late night is not wrapped", saturdayAt(23, 0), &models.Playlist{TimeTags: []scheduler.TimeTag{lateNight}}, false, ReasonOutsideRanges, scheduler.PlayPartial},
		{"Only exclude ranges play all day", saturdayAt(12, 30), &models.Playlist{TimeTags: []scheduler.TimeTag{lunch}}, true, "", scheduler.PlayPartial},
		{
			"Outside window",
			saturdayAt(9, 0),
			&models.Playlist{ActiveBetween: &scheduler.ActiveBetween{ToDate: str("2025-11-21")}},
			false, ReasonOutsideWindow, scheduler.PlayFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.at, tt.playlist)
			assert.Equal(t, tt.wantPlaying, got.Playing)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantState, got.State)
		})
	}
}

func TestManager_ForDevice(t *testing.T) {
	db := setupPlaybackDB(t)

	playlist := models.Playlist{
		Name: "Breakfast Menu",
		TimeTags: []scheduler.TimeTag{{Name: "Morning", Conditions: []scheduler.Condition{
			{Type: scheduler.Include, Time: &scheduler.TimeRange{Start: "06:00", End: "11:00"}},
		}}},
		ActiveBetween: &scheduler.ActiveBetween{FromDate: str("2025-11-01"), ToDate: str("2025-11-30")},
	}
	require.NoError(t, db.Create(&playlist).Error)

	device := models.Device{Name: "Till 1", PlaylistID: &playlist.ID}
	require.NoError(t, db.Create(&device).Error)
	idle := models.Device{Name: "Spare"}
	require.NoError(t, db.Create(&idle).Error)

	clock := scheduler.MockClock{MockTime: time.Date(2025, 11, 19, 8, 15, 0, 0, time.UTC)}
	m := NewManager(db, clock, time.UTC)

	np, err := m.ForDevice(context.Background(), device.ID)
	require.NoError(t, err)
	assert.True(t, np.Playing)
	assert.Equal(t, "Breakfast Menu", np.PlaylistName)
	assert.Equal(t, []string{"Morning"}, np.ActiveTags)
	assert.Equal(t, "2025-11-01 - 2025-11-30", np.WindowText)

	np, err = m.ForDevice(context.Background(), idle.ID)
	require.NoError(t, err)
	assert.False(t, np.Playing)
	assert.Equal(t, ReasonNoPlaylist, np.Reason)

	_, err = m.ForDevice(context.Background(), 999)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}
