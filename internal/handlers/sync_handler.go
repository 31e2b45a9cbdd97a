package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"wholesale-catalog-service/internal/services"
)

// SyncHandler handles sync run endpoints
type SyncHandler struct {
	service   *services.SyncService
	transform *services.TransformService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *services.SyncService, transform *services.TransformService) *SyncHandler {
	return &SyncHandler{service: service, transform: transform}
}

// StartRun triggers a new catalog sync. The pipeline runs in the background;
// the response carries the run row to poll for progress. A second trigger
// while a run is active gets 409.
func (h *SyncHandler) StartRun(c *gin.Context) {
	run, err := h.service.RunSync(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": run})
}

// ListRuns returns the latest sync runs, newest first
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

// GetRun returns a single sync run
func (h *SyncHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

// GetRunLogs returns log entries for a sync run
func (h *SyncHandler) GetRunLogs(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	limit := 100
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	logs, err := h.service.GetRunLogs(c.Request.Context(), uint(id), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

// CleanupOrphaned sweeps crashed runs to TIMEOUT. Called by a periodic
// external trigger; safe to call on any schedule.
func (h *SyncHandler) CleanupOrphaned(c *gin.Context) {
	cleaned, err := h.service.CleanupOrphaned(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"cleanedUp": cleaned}})
}

// TransformRequest controls a manual re-run of the projection
type TransformRequest struct {
	SkipBackup bool `json:"skipBackup"`
}

// RunTransform re-projects the staged records through the current mapping
// state without pulling a new export. Used after resolving mappings so the
// newly mapped SKUs reach the canonical catalog immediately.
func (h *SyncHandler) RunTransform(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.transform.Transform(c.Request.Context(), services.TransformOptions{SkipBackup: req.SkipBackup})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// PruneRequest controls the staged-record prune
type PruneRequest struct {
	OlderThan string `json:"olderThan" binding:"required"`
}

// PruneStale deletes staged records not touched for the given duration
func (h *SyncHandler) PruneStale(c *gin.Context) {
	var req PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	olderThan, err := time.ParseDuration(req.OlderThan)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid olderThan duration"})
		return
	}

	pruned, err := h.service.PruneStale(c.Request.Context(), olderThan)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"pruned": pruned}})
}
