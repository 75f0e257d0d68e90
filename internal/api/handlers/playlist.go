package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-cms/internal/cache"
	"signage-cms/internal/models"
	"signage-cms/internal/publish"
	"signage-cms/internal/scheduler"
)

// Publisher pushes a playlist's manifest to players on demand.
type Publisher interface {
	PublishPlaylist(ctx context.Context, playlistID uint) (*publish.Manifest, error)
}

// PlaylistHandler handles playlist content and scheduling.
type PlaylistHandler struct {
	db        *gorm.DB
	colors    *cache.TagColors
	publisher Publisher
	log       *zap.Logger
}

func NewPlaylistHandler(db *gorm.DB, colors *cache.TagColors, publisher Publisher, log *zap.Logger) *PlaylistHandler {
	return &PlaylistHandler{db: db, colors: colors, publisher: publisher, log: log}
}

func (h *PlaylistHandler) find(c *gin.Context, id uint, withItems bool) (*models.Playlist, bool) {
	q := h.db.WithContext(c.Request.Context())
	if withItems {
		q = q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
			Preload("Items.Media")
	}
	var playlist models.Playlist
	if err := q.First(&playlist, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
			return nil, false
		}
		h.log.Error("load playlist", zap.Uint("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	// Other organisations' playlists are reported as missing.
	if !canAccess(c, playlist.OrganisationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
		return nil, false
	}
	return &playlist, true
}

// CreatePlaylist creates a new empty, unscheduled playlist.
func (h *PlaylistHandler) CreatePlaylist(c *gin.Context) {
	var input struct {
		Name           string `json:"name" binding:"required"`
		Description    string `json:"description"`
		Color          string `json:"color"`
		OrganisationID uint   `json:"organisation_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, ok := ownerFor(c, input.OrganisationID)
	if !ok {
		return
	}

	playlist := models.Playlist{
		OrganisationID: org,
		Name:           input.Name,
		Description:    input.Description,
		Color:          input.Color,
		TimeTags:       []scheduler.TimeTag{},
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&playlist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create playlist"})
		return
	}

	c.JSON(http.StatusCreated, playlist)
}

func (h *PlaylistHandler) GetPlaylist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	playlist, ok := h.find(c, id, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// GetPlaylists lists playlists, optionally for one organisation.
func (h *PlaylistHandler) GetPlaylists(c *gin.Context) {
	q, ok := organisationFilter(c, h.db.WithContext(c.Request.Context()).Model(&models.Playlist{}))
	if !ok {
		return
	}
	q = likeName(q, "name", c.Query("search"))

	var playlists []models.Playlist
	if err := q.Order("name asc").Find(&playlists).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch playlists"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": playlists})
}

func (h *PlaylistHandler) UpdatePlaylist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playlist, ok := h.find(c, id, false)
	if !ok {
		return
	}
	if input.Name != "" {
		playlist.Name = input.Name
	}
	// Always written so the description can be cleared.
	playlist.Description = input.Description
	if input.Color != "" {
		playlist.Color = input.Color
	}

	if err := h.db.WithContext(c.Request.Context()).Save(playlist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update playlist metadata"})
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// UpdatePlaylistItems replaces the playlist's media in the given order.
func (h *PlaylistHandler) UpdatePlaylistItems(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input struct {
		Items []struct {
			MediaID         uint `json:"media_id" binding:"required"`
			DurationSeconds int  `json:"duration_seconds"`
		} `json:"items" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid items"})
		return
	}
	if _, ok := h.find(c, id, false); !ok {
		return
	}

	var totalDuration int
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&models.PlaylistItem{}).Error; err != nil {
			return err
		}
		for i, in := range input.Items {
			var m models.Media
			if err := tx.First(&m, in.MediaID).Error; err != nil {
				return err
			}
			// Unowned media is shared.
			if m.OrganisationID != 0 && !canAccess(c, m.OrganisationID) {
				return gorm.ErrRecordNotFound
			}
			item := models.PlaylistItem{
				PlaylistID:      id,
				MediaID:         in.MediaID,
				SortOrder:       i,
				DurationSeconds: in.DurationSeconds,
			}
			if item.DurationSeconds <= 0 {
				item.DurationSeconds = m.DurationSeconds
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			totalDuration += item.DurationSeconds
		}
		return tx.Model(&models.Playlist{}).Where("id = ?", id).Update("total_duration", totalDuration).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown media in items"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"total_duration": totalDuration,
	})
}

// DeletePlaylist removes a playlist and its items. Devices pointing at it
// are detached.
func (h *PlaylistHandler) DeletePlaylist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, ok := h.find(c, id, false); !ok {
		return
	}
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&models.PlaylistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Device{}).Where("playlist_id = ?", id).Update("playlist_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Playlist{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete playlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Playlist deleted successfully"})
}

type scheduleInput struct {
	TimeTags      []scheduler.TagRef       `json:"time_tags"`
	ActiveBetween *scheduler.ActiveBetween `json:"active_between"`
	Convention    scheduler.Convention     `json:"convention"`
}

// resolveTags turns references into stored tags. Named references copy the
// library definition (shared or the playlist's organisation); unknown names
// become a full-day include. Inline tags are normalised from the request
// convention to SundayFirst.
func resolveTags(ctx context.Context, db *gorm.DB, org uint, refs []scheduler.TagRef, conv scheduler.Convention) ([]scheduler.TimeTag, error) {
	var names []string
	for _, r := range refs {
		if !r.IsInline() {
			names = append(names, r.Name)
		}
	}

	library := make(map[string]scheduler.TimeTag)
	if len(names) > 0 {
		var defs []models.TimeTagDef
		err := db.WithContext(ctx).
			Where("name IN ? AND organisation_id IN ?", names, []uint{0, org}).
			Order("organisation_id asc").
			Find(&defs).Error
		if err != nil {
			return nil, err
		}
		// Organisation tags shadow shared ones.
		for _, d := range defs {
			library[d.Name] = d.TimeTag()
		}
	}

	inline := scheduler.TagSet{Convention: conv}
	for _, r := range refs {
		if r.IsInline() {
			inline.Tags = append(inline.Tags, *r.Inline)
		}
	}
	inline = inline.Normalize(scheduler.SundayFirst)

	tags := make([]scheduler.TimeTag, 0, len(refs))
	next := 0
	for _, r := range refs {
		switch {
		case r.IsInline():
			tags = append(tags, inline.Tags[next])
			next++
		case library[r.Name].Name != "":
			tags = append(tags, library[r.Name])
		default:
			tags = append(tags, r.Resolve(scheduler.Include))
		}
	}
	return tags, nil
}

// UpdateSchedule replaces the playlist's time tags and active window.
func (h *PlaylistHandler) UpdateSchedule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input scheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Convention.Known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": scheduler.ErrConvention.Error()})
		return
	}
	if err := input.ActiveBetween.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playlist, ok := h.find(c, id, false)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tags, err := resolveTags(ctx, h.db, playlist.OrganisationID, input.TimeTags, input.Convention)
	if err != nil {
		h.log.Error("resolve time tags", zap.Uint("playlist_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if err := (scheduler.TagSet{Convention: scheduler.SundayFirst, Tags: tags}).Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window := input.ActiveBetween
	if window.IsZero() {
		window = nil
	}
	err = h.db.WithContext(ctx).Model(playlist).
		Select("TimeTags", "ActiveBetween").
		Updates(models.Playlist{TimeTags: tags, ActiveBetween: window}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save schedule"})
		return
	}
	playlist.TimeTags = tags
	playlist.ActiveBetween = window

	h.log.Info("schedule updated", zap.Uint("playlist_id", id), zap.Int("tags", len(tags)))
	c.JSON(http.StatusOK, gin.H{
		"id":             playlist.ID,
		"time_tags":      tagViews(ctx, h.colors, tags),
		"active_between": window,
		"window_text":    scheduler.FormatActiveWindow(window),
	})
}

// PublishPlaylist regenerates the playlist's manifest now instead of waiting
// for the next publisher pass.
func (h *PlaylistHandler) PublishPlaylist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Publishing is not configured"})
		return
	}
	if _, ok := h.find(c, id, false); !ok {
		return
	}

	manifest, err := h.publisher.PublishPlaylist(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, publish.ErrPlaylistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
			return
		}
		h.log.Error("publish playlist", zap.Uint("playlist_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to publish manifest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"manifest_id":  manifest.ID,
		"generated_at": manifest.GeneratedAt,
		"days":         len(manifest.Days),
	})
}
