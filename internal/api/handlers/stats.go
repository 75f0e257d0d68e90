package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

// StatsHandler serves the public dashboard summary.
type StatsHandler struct {
	db    *gorm.DB
	clock scheduler.Clock
	loc   *time.Location
	log   *zap.Logger
}

func NewStatsHandler(db *gorm.DB, clock scheduler.Clock, loc *time.Location, log *zap.Logger) *StatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsHandler{db: db, clock: clock, loc: loc, log: log}
}

// GetStats returns catalogue counts and how many playlists play today.
func (h *StatsHandler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var totalPlaylists, totalDevices, totalMedia, totalTags int64
	var storageUsed int64
	for _, q := range []struct {
		model any
		dest  *int64
	}{
		{&models.Playlist{}, &totalPlaylists},
		{&models.Device{}, &totalDevices},
		{&models.Media{}, &totalMedia},
		{&models.TimeTagDef{}, &totalTags},
	} {
		if err := db.Model(q.model).Count(q.dest).Error; err != nil {
			h.log.Error("stats count", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	}
	if err := db.Model(&models.Media{}).Select("COALESCE(SUM(size_bytes), 0)").Scan(&storageUsed).Error; err != nil {
		h.log.Error("stats storage used", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var playlists []models.Playlist
	if err := db.Select("id", "time_tags", "active_between").Find(&playlists).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	today := h.clock.Now().In(h.loc)
	playingToday := 0
	for _, p := range playlists {
		if !p.ActiveBetween.IsZero() && !scheduler.IsDateInActivePeriod(today, p.ActiveBetween) {
			continue
		}
		if scheduler.EvaluateDay(today, p.TimeTags).State != scheduler.PlayNone {
			playingToday++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"total_playlists":    totalPlaylists,
			"total_devices":      totalDevices,
			"total_media":        totalMedia,
			"total_time_tags":    totalTags,
			"storage_used_bytes": storageUsed,
			"playing_today":      playingToday,
		},
		"date": today.Format("2006-01-02"),
	})
}
