package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"wholesale-catalog-service/internal/models"
	"wholesale-catalog-service/internal/repository"
)

// CatalogHandler serves the canonical catalog and the category directory
type CatalogHandler struct {
	catalogRepo  repository.CatalogRepositoryInterface
	rawRepo      repository.RawRepositoryInterface
	categoryRepo *repository.CategoryRepository
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	catalogRepo repository.CatalogRepositoryInterface,
	rawRepo repository.RawRepositoryInterface,
	categoryRepo *repository.CategoryRepository,
) *CatalogHandler {
	return &CatalogHandler{
		catalogRepo:  catalogRepo,
		rawRepo:      rawRepo,
		categoryRepo: categoryRepo,
	}
}

// ListSkus returns canonical SKU rows with pagination and filtering
func (h *CatalogHandler) ListSkus(c *gin.Context) {
	opts := repository.CatalogListOptions{
		BaseSKU: c.Query("baseSku"),
		Limit:   50,
	}

	if categoryID := c.Query("categoryId"); categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid categoryId"})
			return
		}
		opts.CategoryID = &id
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		opts.Offset = o
	}

	rows, total, err := h.catalogRepo.List(c.Request.Context(), opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   rows,
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetSku returns one canonical row by SKU
func (h *CatalogHandler) GetSku(c *gin.Context) {
	row, err := h.catalogRepo.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": row})
}

// ListDuplicates reports SKU strings shared by more than one staged variant.
// Duplicates here mean the external catalog needs fixing.
func (h *CatalogHandler) ListDuplicates(c *gin.Context) {
	dups, err := h.rawRepo.FindDuplicateSKUs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  dups,
		"total": len(dups),
	})
}

// ListCategories returns the category directory
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryRepo.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// CreateCategoryRequest creates a category directory entry
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateCategory adds a category to the directory
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := &models.Category{Name: req.Name}
	if err := h.categoryRepo.Create(c.Request.Context(), category); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": category})
}
