package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"signage-cms/internal/api/middleware"
	"signage-cms/internal/metrics"
	"signage-cms/internal/scheduler"
)

// EvaluateHandler evaluates ad-hoc rule sets, e.g. for the tag editor's
// preview. Only the tag library is read; nothing is written.
type EvaluateHandler struct {
	db  *gorm.DB
	loc *time.Location
}

func NewEvaluateHandler(db *gorm.DB, loc *time.Location) *EvaluateHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &EvaluateHandler{db: db, loc: loc}
}

type evaluateInput struct {
	Date          string                   `json:"date" binding:"required"`
	TimeTags      []scheduler.TagRef       `json:"time_tags"`
	Convention    scheduler.Convention     `json:"convention"`
	ActiveBetween *scheduler.ActiveBetween `json:"active_between"`
}

// Evaluate returns the DayPlayState for one date. Named references resolve
// against the library exactly as a saved schedule would.
func (h *EvaluateHandler) Evaluate(c *gin.Context) {
	var input evaluateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := scheduler.ParseDate(input.Date, h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	if !input.Convention.Known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": scheduler.ErrConvention.Error()})
		return
	}

	// The caller's organisation tags shadow shared ones, as in a schedule.
	var org uint
	if v, ok := c.Get(middleware.ContextOrgID); ok {
		org, _ = v.(uint)
	}
	tags, err := resolveTags(c.Request.Context(), h.db, org, input.TimeTags, input.Convention)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	play := scheduler.TagSet{Convention: scheduler.SundayFirst, Tags: tags}.EvaluateDay(date)
	metrics.ObserveState(string(play.State))
	inPeriod := input.ActiveBetween.IsZero() || scheduler.IsDateInActivePeriod(date, input.ActiveBetween)

	c.JSON(http.StatusOK, gin.H{
		"date":             input.Date,
		"play":             play,
		"in_active_period": inPeriod,
		"playing":          inPeriod && play.State != scheduler.PlayNone,
	})
}
