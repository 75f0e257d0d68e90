package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-cms/internal/api/middleware"
	"signage-cms/internal/cache"
	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

// TagView is a time tag as the dashboard shows it.
type TagView struct {
	Name       string                  `json:"name"`
	Color      string                  `json:"color"`
	Type       scheduler.ConditionType `json:"type"`
	Summary    string                  `json:"summary"`
	Conditions []scheduler.Condition   `json:"conditions"`
	Notes      string                  `json:"notes,omitempty"`
}

func newTagView(tag scheduler.TimeTag, color string) TagView {
	v := TagView{
		Name:       tag.Name,
		Color:      color,
		Type:       scheduler.TagType(&tag),
		Conditions: tag.Conditions,
		Notes:      tag.Notes,
	}
	if c := scheduler.PrimaryCondition(&tag); c != nil {
		v.Summary = scheduler.FormatCondition(*c, scheduler.SundayFirst)
	}
	if v.Conditions == nil {
		v.Conditions = []scheduler.Condition{}
	}
	return v
}

func tagViews(ctx context.Context, colors *cache.TagColors, tags []scheduler.TimeTag) []TagView {
	out := make([]TagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, newTagView(t, colors.Color(ctx, t.Name)))
	}
	return out
}

// TimeTagHandler manages the reusable tag library.
type TimeTagHandler struct {
	db     *gorm.DB
	colors *cache.TagColors
	log    *zap.Logger
}

func NewTimeTagHandler(db *gorm.DB, colors *cache.TagColors, log *zap.Logger) *TimeTagHandler {
	return &TimeTagHandler{db: db, colors: colors, log: log}
}

type timeTagInput struct {
	Name           string                `json:"name" binding:"required"`
	Color          string                `json:"color"`
	Notes          string                `json:"notes"`
	Conditions     []scheduler.Condition `json:"conditions"`
	Convention     scheduler.Convention  `json:"convention"`
	OrganisationID uint                  `json:"organisation_id"`
}

// toTag validates the input and returns its conditions in SundayFirst,
// which is how the library is stored.
func (in timeTagInput) toTag() (scheduler.TimeTag, error) {
	set := scheduler.TagSet{
		Convention: in.Convention,
		Tags: []scheduler.TimeTag{{
			Name:       strings.TrimSpace(in.Name),
			Conditions: in.Conditions,
			Notes:      in.Notes,
		}},
	}
	if err := set.Validate(); err != nil {
		return scheduler.TimeTag{}, err
	}
	return set.Normalize(scheduler.SundayFirst).Tags[0], nil
}

// ListTimeTags returns the shared library plus the caller's organisation tags.
func (h *TimeTagHandler) ListTimeTags(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.TimeTagDef{})
	if org, ok := c.Get(middleware.ContextOrgID); ok {
		q = q.Where("organisation_id IN ?", []uint{0, org.(uint)})
	}

	var defs []models.TimeTagDef
	if err := q.Order("name asc").Find(&defs).Error; err != nil {
		h.log.Error("list time tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	type item struct {
		ID             uint `json:"id"`
		OrganisationID uint `json:"organisation_id"`
		TagView
	}
	out := make([]item, 0, len(defs))
	for _, d := range defs {
		out = append(out, item{ID: d.ID, OrganisationID: d.OrganisationID, TagView: newTagView(d.TimeTag(), d.Color)})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *TimeTagHandler) nameTaken(ctx context.Context, org uint, name string, exceptID uint) (bool, error) {
	var count int64
	err := h.db.WithContext(ctx).Model(&models.TimeTagDef{}).
		Where("organisation_id = ? AND name = ? AND id <> ?", org, name, exceptID).
		Count(&count).Error
	return count > 0, err
}

// findWritable loads a library tag the caller may change. Shared tags are
// admin-only; other organisations' tags are reported as missing.
func (h *TimeTagHandler) findWritable(c *gin.Context, id uint) (*models.TimeTagDef, bool) {
	var def models.TimeTagDef
	if err := h.db.WithContext(c.Request.Context()).First(&def, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Time tag not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if _, confined := callerOrg(c); confined && def.OrganisationID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: shared time tags are admin-only"})
		return nil, false
	}
	if !canAccess(c, def.OrganisationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Time tag not found"})
		return nil, false
	}
	return &def, true
}

func (h *TimeTagHandler) CreateTimeTag(c *gin.Context) {
	var input timeTagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tag, err := input.toTag()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, ok := ownerFor(c, input.OrganisationID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	taken, err := h.nameTaken(ctx, org, tag.Name, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "A time tag with this name already exists"})
		return
	}

	def := models.TimeTagDef{
		OrganisationID: org,
		Name:           tag.Name,
		Color:          input.Color,
		Notes:          tag.Notes,
		Conditions:     tag.Conditions,
	}
	if def.Color == "" {
		def.Color = cache.DefaultColor
	}
	if err := h.db.WithContext(ctx).Create(&def).Error; err != nil {
		h.log.Error("create time tag", zap.String("name", tag.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create time tag"})
		return
	}
	h.colors.Invalidate()

	c.JSON(http.StatusCreated, def)
}

// UpdateTimeTag replaces a library tag. Playlists hold copies, so already
// scheduled playlists are unaffected until they are rescheduled.
func (h *TimeTagHandler) UpdateTimeTag(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input timeTagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tag, err := input.toTag()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	def, ok := h.findWritable(c, id)
	if !ok {
		return
	}

	taken, err := h.nameTaken(ctx, def.OrganisationID, tag.Name, def.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "A time tag with this name already exists"})
		return
	}

	def.Name = tag.Name
	def.Notes = tag.Notes
	def.Conditions = tag.Conditions
	if input.Color != "" {
		def.Color = input.Color
	}
	if err := h.db.WithContext(ctx).Save(def).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update time tag"})
		return
	}
	h.colors.Invalidate()

	c.JSON(http.StatusOK, def)
}

func (h *TimeTagHandler) DeleteTimeTag(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	def, ok := h.findWritable(c, id)
	if !ok {
		return
	}
	// Hard delete so the name can be reused.
	if err := h.db.WithContext(c.Request.Context()).Unscoped().Delete(def).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete time tag"})
		return
	}
	h.colors.Invalidate()

	c.JSON(http.StatusOK, gin.H{"message": "Time tag deleted"})
}
