// Package handlers exposes the HTTP operations surface of the service.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catalog-sync-service/internal/cache"
	"catalog-sync-service/internal/importer"
	"catalog-sync-service/internal/repository"
	"catalog-sync-service/internal/services"
)

// SyncHandler handles catalog import and sync inspection endpoints
type SyncHandler struct {
	runner  *services.BatchRunner
	cache   *cache.AggregateCache
	repo    *repository.SyncRepository
	dataDir string
}

// NewSyncHandler creates a new sync handler. repo may be nil.
func NewSyncHandler(runner *services.BatchRunner, aggregateCache *cache.AggregateCache, repo *repository.SyncRepository, dataDir string) *SyncHandler {
	return &SyncHandler{
		runner:  runner,
		cache:   aggregateCache,
		repo:    repo,
		dataDir: dataDir,
	}
}

// RunImport triggers a full catalog import and synchronization run
func (h *SyncHandler) RunImport(c *gin.Context) {
	var req struct {
		Dir string `json:"dir"`
	}
	// Body is optional; without it the configured data directory is used.
	_ = c.ShouldBindJSON(&req)
	dir := req.Dir
	if dir == "" {
		dir = h.dataDir
	}

	summary, err := h.runner.Run(c.Request.Context(), dir)
	if err != nil {
		status := http.StatusInternalServerError
		switch err.(type) {
		case *importer.MissingInputError, *importer.SchemaError:
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       summary,
		"durationMs": summary.Duration.Milliseconds(),
	})
}

// ListAttempts returns recent sync attempts
func (h *SyncHandler) ListAttempts(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync attempt auditing is disabled"})
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	attempts, err := h.repo.ListAttempts(c.Request.Context(), c.Query("sku"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  attempts,
		"total": len(attempts),
	})
}

// SyncStats returns attempt counts grouped by state
func (h *SyncHandler) SyncStats(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync attempt auditing is disabled"})
		return
	}

	counts, err := h.repo.CountByState(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": counts})
}

// CacheStats returns the number of partial aggregates currently cached
func (h *SyncHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"aggregates": h.cache.Len(),
		},
	})
}
