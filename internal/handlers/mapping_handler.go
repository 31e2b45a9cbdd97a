package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"wholesale-catalog-service/internal/services"
)

// MappingHandler handles the collection mapping reconciliation endpoints
// consumed by the admin UI
type MappingHandler struct {
	service *services.MappingService
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(service *services.MappingService) *MappingHandler {
	return &MappingHandler{service: service}
}

// ListMappings returns mappings, optionally filtered by status, highest SKU
// count first
func (h *MappingHandler) ListMappings(c *gin.Context) {
	mappings, err := h.service.ListByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mappings})
}

// ResolveRequest maps a raw value to a category
type ResolveRequest struct {
	CategoryID uuid.UUID `json:"categoryId" binding:"required"`
}

// Resolve maps a raw collection value to an existing category
func (h *MappingHandler) Resolve(c *gin.Context) {
	rawValue := c.Param("raw")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mapping, err := h.service.Resolve(c.Request.Context(), rawValue, req.CategoryID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mapping})
}

// DeferRequest postpones a mapping decision
type DeferRequest struct {
	Note string `json:"note"`
}

// Defer postpones the decision on a raw value with an optional note
func (h *MappingHandler) Defer(c *gin.Context) {
	rawValue := c.Param("raw")

	var req DeferRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mapping, err := h.service.Defer(c.Request.Context(), rawValue, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mapping})
}

// Unmap undoes a resolution, returning the value to the unmapped pool
func (h *MappingHandler) Unmap(c *gin.Context) {
	mapping, err := h.service.Unmap(c.Request.Context(), c.Param("raw"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mapping})
}

// StagedSkus lists the staged records carrying a raw value, as an impact
// preview before mapping it
func (h *MappingHandler) StagedSkus(c *gin.Context) {
	records, err := h.service.StagedSkus(c.Request.Context(), c.Param("raw"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  records,
		"total": len(records),
	})
}
