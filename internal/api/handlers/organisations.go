package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"signage-cms/internal/models"
	"signage-cms/internal/orgtree"
)

type OrganisationHandler struct {
	db *gorm.DB
}

func NewOrganisationHandler(db *gorm.DB) *OrganisationHandler {
	return &OrganisationHandler{db: db}
}

func loadOrgTree(ctx context.Context, db *gorm.DB) ([]*orgtree.Tree, error) {
	var orgs []models.Organisation
	if err := db.WithContext(ctx).Select("id", "parent_id", "name").Find(&orgs).Error; err != nil {
		return nil, err
	}
	nodes := make([]orgtree.Node, len(orgs))
	for i, o := range orgs {
		nodes[i] = orgtree.Node{ID: o.ID, ParentID: o.ParentID, Name: o.Name}
	}
	return orgtree.Build(nodes), nil
}

// subtreeIDs returns root and all of its descendants.
func subtreeIDs(ctx context.Context, db *gorm.DB, root uint) ([]uint, error) {
	roots, err := loadOrgTree(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, t := range orgtree.Flatten(roots) {
		if t.ID == root {
			return orgtree.IDs([]*orgtree.Tree{t}), nil
		}
	}
	return []uint{root}, nil
}

// GetOrganisations returns the organisation tree. ?search= keeps matching
// organisations with their ancestors and full subtrees.
func (h *OrganisationHandler) GetOrganisations(c *gin.Context) {
	roots, err := loadOrgTree(c.Request.Context(), h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	roots = orgtree.Filter(roots, c.Query("search"))
	if roots == nil {
		roots = []*orgtree.Tree{}
	}
	c.JSON(http.StatusOK, gin.H{"data": roots})
}
