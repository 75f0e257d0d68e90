package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"signage-cms/internal/api/middleware"
	"signage-cms/internal/cache"
	"signage-cms/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

type page struct {
	Page  int
	Limit int
}

func (p page) offset() int { return (p.Page - 1) * p.Limit }

// parsePage reads 1-based ?page= and ?limit=, clamping bad values instead of
// rejecting them.
func parsePage(c *gin.Context) page {
	p, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if p < 1 {
		p = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page{Page: p, Limit: limit}
}

func pageMeta(p page, total int64) gin.H {
	return gin.H{"total": total, "page": p.Page, "limit": p.Limit}
}

// likeName filters on a case-insensitive substring of column. LOWER/LIKE
// works on both postgres and sqlite.
func likeName(q *gorm.DB, column, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return q
	}
	return q.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(search)+"%")
}

// callerOrg returns the organisation a non-admin caller is confined to.
// Admins and tokens without an organisation claim are not confined.
func callerOrg(c *gin.Context) (uint, bool) {
	if role, _ := c.Get(middleware.ContextRole); role == middleware.RoleAdmin {
		return 0, false
	}
	v, ok := c.Get(middleware.ContextOrgID)
	if !ok {
		return 0, false
	}
	org, ok := v.(uint)
	return org, ok
}

// canAccess reports whether the caller may touch a record owned by org.
func canAccess(c *gin.Context, org uint) bool {
	own, confined := callerOrg(c)
	return !confined || own == org
}

// ownerFor picks the organisation a new record is created under. Confined
// callers always create in their own organisation; asking for another one
// answers 403.
func ownerFor(c *gin.Context, requested uint) (uint, bool) {
	own, confined := callerOrg(c)
	if !confined {
		return requested, true
	}
	if requested != 0 && requested != own {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: other organisation"})
		return 0, false
	}
	return own, true
}

// queryOrg reads ?organisation_id=, defaulting to the token's organisation.
// Confined callers may not name another organisation.
func queryOrg(c *gin.Context) (uint, bool, bool) {
	raw := c.Query("organisation_id")
	if raw == "" {
		if v, ok := c.Get(middleware.ContextOrgID); ok {
			org, _ := v.(uint)
			return org, true, true
		}
		return 0, false, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organisation_id"})
		return 0, false, false
	}
	if !canAccess(c, uint(id)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: other organisation"})
		return 0, false, false
	}
	return uint(id), true, true
}

// organisationFilter restricts q to ?organisation_id=, falling back to the
// caller's organisation from the token. Admins without either see everything.
func organisationFilter(c *gin.Context, q *gorm.DB) (*gorm.DB, bool) {
	org, set, ok := queryOrg(c)
	if !ok {
		return nil, false
	}
	if set {
		q = q.Where("organisation_id = ?", org)
	}
	return q, true
}

// TagColorLoader feeds the tag colour cache from the tag library.
func TagColorLoader(db *gorm.DB) cache.LoadFunc {
	return func(ctx context.Context) (map[string]string, error) {
		var defs []models.TimeTagDef
		if err := db.WithContext(ctx).Select("name", "color").Find(&defs).Error; err != nil {
			return nil, err
		}
		colors := make(map[string]string, len(defs))
		for _, d := range defs {
			colors[d.Name] = d.Color
		}
		return colors, nil
	}
}
