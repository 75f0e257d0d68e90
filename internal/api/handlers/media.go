package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-cms/internal/models"
)

// MediaHandler lists the media catalogue. Uploading lives in another service.
type MediaHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMediaHandler(db *gorm.DB, log *zap.Logger) *MediaHandler {
	return &MediaHandler{db: db, log: log}
}

// LibraryMedia is the list view; it leaves out timestamps and storage details.
type LibraryMedia struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	DurationSeconds int    `json:"duration_seconds"`
	SizeBytes       int64  `json:"size_bytes"`
}

// GetMedia returns a page of media, optionally filtered by ?search= and ?kind=.
func (h *MediaHandler) GetMedia(c *gin.Context) {
	p := parsePage(c)
	q, ok := organisationFilter(c, h.db.WithContext(c.Request.Context()).Model(&models.Media{}))
	if !ok {
		return
	}
	q = likeName(q, "name", c.Query("search"))
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// ID is sequential, so id desc is "newest first" without a created_at index.
	var media []LibraryMedia
	err := q.Select("id, name, kind, duration_seconds, size_bytes").
		Order("id DESC").
		Limit(p.Limit).Offset(p.offset()).
		Find(&media).Error
	if err != nil {
		h.log.Error("list media", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": media,
		"meta": pageMeta(p, total),
	})
}
