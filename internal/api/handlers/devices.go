package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-cms/internal/models"
	"signage-cms/internal/playback"
)

type DeviceHandler struct {
	db      *gorm.DB
	manager *playback.Manager
	log     *zap.Logger
}

func NewDeviceHandler(db *gorm.DB, manager *playback.Manager, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{db: db, manager: manager, log: log}
}

// GetDevices returns a page of devices. With ?include_children=true the
// organisation's whole subtree is listed.
func (h *DeviceHandler) GetDevices(c *gin.Context) {
	ctx := c.Request.Context()
	p := parsePage(c)
	q := h.db.WithContext(ctx).Model(&models.Device{})

	org, set, ok := queryOrg(c)
	if !ok {
		return
	}
	switch {
	case set && c.Query("include_children") == "true":
		ids, err := subtreeIDs(ctx, h.db, org)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		q = q.Where("organisation_id IN ?", ids)
	case set:
		q = q.Where("organisation_id = ?", org)
	}
	q = likeName(q, "name", c.Query("search"))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var devices []models.Device
	err := q.Order("name asc").Order("id asc").
		Limit(p.Limit).Offset(p.offset()).
		Find(&devices).Error
	if err != nil {
		h.log.Error("list devices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": devices,
		"meta": pageMeta(p, total),
	})
}

// AssignPlaylist points a device at a playlist; a null playlist_id detaches it.
func (h *DeviceHandler) AssignPlaylist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input struct {
		PlaylistID *uint `json:"playlist_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var device models.Device
	if err := h.db.WithContext(ctx).Select("id", "organisation_id").First(&device, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !canAccess(c, device.OrganisationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if input.PlaylistID != nil {
		var playlist models.Playlist
		err := h.db.WithContext(ctx).Select("id", "organisation_id").First(&playlist, *input.PlaylistID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if err != nil || !canAccess(c, playlist.OrganisationID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown playlist"})
			return
		}
	}

	err := h.db.WithContext(ctx).Model(&device).Update("playlist_id", input.PlaylistID).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign playlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "playlist_id": input.PlaylistID})
}

// GetNowPlaying reports whether the device's playlist is playing right now.
func (h *DeviceHandler) GetNowPlaying(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	np, err := h.manager.ForDevice(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, playback.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return
		}
		h.log.Error("resolve now playing", zap.Uint("device_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !canAccess(c, np.OrganisationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	c.JSON(http.StatusOK, np)
}
