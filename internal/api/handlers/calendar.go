package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"signage-cms/internal/cache"
	"signage-cms/internal/metrics"
	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

const defaultCalendarDays = 14

// CalendarHandler answers "when does this playlist play" questions.
type CalendarHandler struct {
	db     *gorm.DB
	colors *cache.TagColors
	clock  scheduler.Clock
	loc    *time.Location
}

func NewCalendarHandler(db *gorm.DB, colors *cache.TagColors, clock scheduler.Clock, loc *time.Location) *CalendarHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarHandler{db: db, colors: colors, clock: clock, loc: loc}
}

type calendarDayView struct {
	Date           string                `json:"date"`
	State          scheduler.PlayState   `json:"state"`
	ActiveTags     []TagView             `json:"active_tags"`
	TimeRanges     []scheduler.TimeRange `json:"time_ranges"`
	InActivePeriod bool                  `json:"in_active_period"`
	Playing        bool                  `json:"playing"`
}

func (h *CalendarHandler) load(c *gin.Context) (*models.Playlist, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	var playlist models.Playlist
	err := h.db.WithContext(c.Request.Context()).
		Select("id", "organisation_id", "name", "time_tags", "active_between").
		First(&playlist, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if !canAccess(c, playlist.OrganisationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
		return nil, false
	}
	return &playlist, true
}

// GetCalendar evaluates every day in [from, to]. Both default from today;
// the range is capped at scheduler.MaxCalendarDays.
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	today := h.clock.Now().In(h.loc)
	from, to := today, today.AddDate(0, 0, defaultCalendarDays-1)

	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = scheduler.ParseDate(raw, h.loc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return
		}
		if c.Query("to") == "" {
			to = from.AddDate(0, 0, defaultCalendarDays-1)
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = scheduler.ParseDate(raw, h.loc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
			return
		}
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return
	}
	if to.Sub(from) >= scheduler.MaxCalendarDays*24*time.Hour {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Range too large"})
		return
	}

	playlist, ok := h.load(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	days := scheduler.BuildCalendar(from, to, playlist.TimeTags, playlist.ActiveBetween)
	out := make([]calendarDayView, 0, len(days))
	for _, d := range days {
		metrics.ObserveState(string(d.Play.State))
		out = append(out, calendarDayView{
			Date:           d.Date,
			State:          d.Play.State,
			ActiveTags:     tagViews(ctx, h.colors, d.Play.ActiveTags),
			TimeRanges:     d.Play.TimeRanges,
			InActivePeriod: d.InActivePeriod,
			Playing:        d.Playing,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"playlist_id": playlist.ID,
		"window_text": scheduler.FormatActiveWindow(playlist.ActiveBetween),
		"outside_now": playlist.ActiveBetween.IsOutsideNow(h.clock),
		"days":        out,
	})
}

// GetStatus reports today's play state for the playlist.
func (h *CalendarHandler) GetStatus(c *gin.Context) {
	playlist, ok := h.load(c)
	if !ok {
		return
	}

	now := h.clock.Now().In(h.loc)
	play := scheduler.EvaluateDay(now, playlist.TimeTags)
	metrics.ObserveState(string(play.State))
	outside := playlist.ActiveBetween.IsOutsideAt(now)
	inPeriod := playlist.ActiveBetween.IsZero() || scheduler.IsDateInActivePeriod(now, playlist.ActiveBetween)

	c.JSON(http.StatusOK, gin.H{
		"playlist_id":      playlist.ID,
		"date":             now.Format("2006-01-02"),
		"state":            play.State,
		"active_tags":      tagViews(c.Request.Context(), h.colors, play.ActiveTags),
		"time_ranges":      play.TimeRanges,
		"in_active_period": inPeriod,
		"outside_now":      outside,
		"playing_today":    inPeriod && play.State != scheduler.PlayNone,
		"window_text":      scheduler.FormatActiveWindow(playlist.ActiveBetween),
	})
}
