package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/directory"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// ListProviders searches the service-provider directory
// GET /api/v1/providers?category=&search=&limit=&offset=
func (h *Handlers) ListProviders(c *gin.Context) {
	limit, offset := page(c, directory.DefaultLimit, directory.MaxLimit)

	providers, err := h.directory.ListProviders(c.Request.Context(), directory.ProviderFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondList(c, providers, gin.H{"count": len(providers), "limit": limit, "offset": offset})
}

// GetProvider returns one provider
// GET /api/v1/providers/:id
func (h *Handlers) GetProvider(c *gin.Context) {
	provider, err := h.directory.GetProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, provider)
}

// CreateProvider lists a new provider owned by the caller
// POST /api/v1/providers
func (h *Handlers) CreateProvider(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req directory.CreateProviderInput
	if !bindJSON(c, &req) {
		return
	}

	provider, err := h.directory.CreateProvider(c.Request.Context(), user.ID, req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, provider)
}

// ListCategories returns the provider categories
// GET /api/v1/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.directory.ListCategories(c.Request.Context())
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, categories)
}
