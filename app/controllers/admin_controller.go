package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/app/requests"
	"github.com/address-normalizer/app/responses"
	"github.com/address-normalizer/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminController handles the review queue and operational endpoints.
type AdminController struct {
	adminService  *services.AdminService
	reviewService *services.ReviewService
	cacheService  services.ICacheService
	environment   string
	logger        *zap.Logger
}

// NewAdminController creates the controller.
func NewAdminController(adminService *services.AdminService, reviewService *services.ReviewService, cacheService services.ICacheService, environment string, logger *zap.Logger) *AdminController {
	return &AdminController{
		adminService:  adminService,
		reviewService: reviewService,
		cacheService:  cacheService,
		environment:   environment,
		logger:        logger,
	}
}

// ListReviews pages through the review queue, optionally filtered by
// ?status=. Counts per status ride along for dashboard rendering.
func (ac *AdminController) ListReviews(c *gin.Context) {
	status := c.Query("status")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	reviews, total, err := ac.reviewService.ListReviews(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Cannot list reviews: "+err.Error())
		return
	}

	counts, err := ac.reviewService.CountByStatus(c.Request.Context())
	if err != nil {
		ac.logger.Warn("Failed to count reviews by status", zap.Error(err))
		counts = map[string]int64{}
	}

	c.JSON(http.StatusOK, responses.ReviewListResponse{
		Reviews:  reviews,
		Total:    total,
		Pending:  counts[models.ReviewStatusPending],
		Approved: counts[models.ReviewStatusApproved],
		Rejected: counts[models.ReviewStatusRejected],
		Limit:    limit,
		Offset:   offset,
	})
}

// SearchReviews runs a full-text query over the review index.
func (ac *AdminController) SearchReviews(c *gin.Context) {
	query := c.Query("q")
	status := c.Query("status")
	limit := queryInt(c, "limit", 20)

	if query == "" && status == "" {
		respondError(c, http.StatusBadRequest, "MISSING_QUERY", "Query parameter q is required")
		return
	}

	hits, err := ac.reviewService.SearchReviews(query, status, limit)
	if err != nil {
		ac.logger.Error("Review search failed", zap.String("query", query), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "SEARCH_ERROR", "Search failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SearchReviewsResponse{
		Query: query,
		Hits:  hits,
		Count: len(hits),
	})
}

// GetReview returns one review queue entry.
func (ac *AdminController) GetReview(c *gin.Context) {
	reviewID := c.Param("reviewID")

	review, err := ac.reviewService.GetReview(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, services.ErrReviewNotFound) {
			respondError(c, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found: "+reviewID)
			return
		}
		respondError(c, http.StatusInternalServerError, "REVIEW_ERROR", "Failed to load review: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, review)
}

// ApproveReview marks an entry's auto result as correct.
func (ac *AdminController) ApproveReview(c *gin.Context) {
	reviewID := c.Param("reviewID")

	var req requests.ReviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	review, err := ac.reviewService.Approve(c.Request.Context(), reviewID, req.ReviewerID)
	if err != nil {
		ac.respondReviewError(c, reviewID, err)
		return
	}

	c.JSON(http.StatusOK, responses.ReviewActionResponse{
		Success:   true,
		ReviewID:  review.ID,
		Action:    "approve",
		Message:   "Review approved",
		UpdatedAt: time.Now().Format(time.RFC3339),
	})
}

// RejectReview marks an entry's auto result as wrong.
func (ac *AdminController) RejectReview(c *gin.Context) {
	reviewID := c.Param("reviewID")

	var req requests.ReviewActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	review, err := ac.reviewService.Reject(c.Request.Context(), reviewID, req.ReviewerID)
	if err != nil {
		ac.respondReviewError(c, reviewID, err)
		return
	}

	c.JSON(http.StatusOK, responses.ReviewActionResponse{
		Success:   true,
		ReviewID:  review.ID,
		Action:    "reject",
		Message:   "Review rejected",
		UpdatedAt: time.Now().Format(time.RFC3339),
	})
}

// CorrectReview replaces an entry's tags with reviewer-supplied values.
func (ac *AdminController) CorrectReview(c *gin.Context) {
	reviewID := c.Param("reviewID")

	var req requests.ReviewCorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	review, err := ac.reviewService.Correct(c.Request.Context(), reviewID, req.ReviewerID, req.Tags)
	if err != nil {
		ac.respondReviewError(c, reviewID, err)
		return
	}

	c.JSON(http.StatusOK, responses.ReviewActionResponse{
		Success:   true,
		ReviewID:  review.ID,
		Action:    "correct",
		Message:   "Review corrected",
		UpdatedAt: time.Now().Format(time.RFC3339),
	})
}

// respondReviewError maps review service errors onto status codes.
func (ac *AdminController) respondReviewError(c *gin.Context, reviewID string, err error) {
	switch {
	case errors.Is(err, services.ErrReviewNotFound):
		respondError(c, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found: "+reviewID)
	case errors.Is(err, services.ErrReviewCompleted):
		respondError(c, http.StatusConflict, "REVIEW_COMPLETED", "Review was already resolved: "+reviewID)
	default:
		ac.logger.Error("Review action failed", zap.String("review_id", reviewID), zap.Error(err))
		respondError(c, http.StatusBadRequest, "REVIEW_ERROR", "Review action failed: "+err.Error())
	}
}

// ImportAliases loads curated aliases, or validates them when
// ?dry_run=true.
func (ac *AdminController) ImportAliases(c *gin.Context) {
	var req requests.ImportAliasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	dryRun := c.Query("dry_run") == "true"

	if dryRun {
		validation := ac.adminService.ValidateAliases(req.Aliases)
		c.JSON(http.StatusOK, responses.ImportAliasesResponse{
			ValidationPassed: validation.Passed,
			Warnings:         validation.Warnings,
			DryRun:           true,
			Message:          "Validation finished",
		})
		return
	}

	result, err := ac.adminService.ImportAliases(c.Request.Context(), req.Aliases, req.UpdateSynonyms)
	if err != nil {
		ac.logger.Error("Alias import failed", zap.Error(err))
		respondError(c, http.StatusBadRequest, "IMPORT_ERROR", "Alias import failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.ImportAliasesResponse{
		ValidationPassed: true,
		AliasesImported:  result.AliasesImported,
		SynonymsUpdated:  result.SynonymsUpdated,
		ProcessingTimeMs: result.ProcessingTimeMs,
		DryRun:           false,
		Message:          "Aliases imported",
	})
}

// ListAliases returns stored aliases, most used first.
func (ac *AdminController) ListAliases(c *gin.Context) {
	limit := queryInt(c, "limit", 100)

	aliases, err := ac.adminService.ListAliases(c.Request.Context(), limit)
	if err != nil {
		ac.logger.Error("Failed to list aliases", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "ALIAS_ERROR", "Failed to list aliases: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Aliases retrieved",
		Data:      aliases,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// RebuildSynonyms pushes the stored alias set into the search index.
func (ac *AdminController) RebuildSynonyms(c *gin.Context) {
	startTime := time.Now()

	if err := ac.adminService.RebuildSynonyms(c.Request.Context()); err != nil {
		ac.logger.Error("Failed to rebuild synonyms", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "REBUILD_ERROR", "Failed to rebuild synonyms: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success: true,
		Message: "Synonyms rebuilt",
		Data: map[string]interface{}{
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// BuildIndexes applies the search index settings.
func (ac *AdminController) BuildIndexes(c *gin.Context) {
	startTime := time.Now()

	if err := ac.adminService.BuildIndexes(); err != nil {
		ac.logger.Error("Failed to build indexes", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "BUILD_ERROR", "Failed to build indexes: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success: true,
		Message: "Indexes built",
		Data: map[string]interface{}{
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// ReindexReviews rebuilds the search projection from the review store.
func (ac *AdminController) ReindexReviews(c *gin.Context) {
	startTime := time.Now()

	indexed, err := ac.adminService.ReindexReviews(c.Request.Context())
	if err != nil {
		ac.logger.Error("Failed to reindex reviews", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "REINDEX_ERROR", "Failed to reindex reviews: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success: true,
		Message: "Reviews reindexed",
		Data: map[string]interface{}{
			"reviews_indexed":    indexed,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// GetStats aggregates system, pipeline and cache statistics.
func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Failed to collect system stats", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "STATS_ERROR", "Failed to collect stats: "+err.Error())
		return
	}

	cacheStats := &services.CacheStats{}
	if ac.cacheService != nil {
		if cs, err := ac.cacheService.GetStats(c.Request.Context()); err != nil {
			ac.logger.Warn("Failed to collect cache stats", zap.Error(err))
		} else {
			cacheStats = cs
		}
	}

	c.JSON(http.StatusOK, responses.SystemStatsResponse{
		CacheHitRate:        cacheStats.HitRate,
		AccuracyRate:        stats.AccuracyRate,
		AvgProcessingTimeMs: stats.AvgProcessingTimeMs,
		TotalProcessed:      stats.TotalProcessed,
		ReviewQueueSize:     stats.ReviewQueueSize,
		SystemInfo: responses.SystemInfo{
			Version:     apiVersion,
			Environment: ac.environment,
			Uptime:      stats.Uptime,
			MemoryUsage: stats.MemoryUsage,
		},
		DatabaseStats: responses.DatabaseStats{
			ResultCache:    stats.DatabaseStats.ResultCache,
			Reviews:        stats.DatabaseStats.Reviews,
			LearnedAliases: stats.DatabaseStats.LearnedAliases,
		},
	})
}

// GetCacheStats returns cache layer statistics.
func (ac *AdminController) GetCacheStats(c *gin.Context) {
	if ac.cacheService == nil {
		respondError(c, http.StatusServiceUnavailable, "CACHE_DISABLED", "No cache is configured")
		return
	}

	stats, err := ac.cacheService.GetStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Failed to collect cache stats", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "CACHE_ERROR", "Failed to collect cache stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Cache stats retrieved",
		Data:      stats,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// ClearCache drops every cached result.
func (ac *AdminController) ClearCache(c *gin.Context) {
	if ac.cacheService == nil {
		respondError(c, http.StatusServiceUnavailable, "CACHE_DISABLED", "No cache is configured")
		return
	}

	if err := ac.cacheService.Clear(c.Request.Context()); err != nil {
		ac.logger.Error("Failed to clear cache", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "CACHE_ERROR", "Failed to clear cache: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Cache cleared",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// InvalidateCache drops cached results that predate the given
// expansion table version.
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	if ac.cacheService == nil {
		respondError(c, http.StatusServiceUnavailable, "CACHE_DISABLED", "No cache is configured")
		return
	}

	tableVersion := c.Query("table_version")
	if tableVersion == "" {
		respondError(c, http.StatusBadRequest, "MISSING_VERSION", "Query parameter table_version is required")
		return
	}

	startTime := time.Now()

	if err := ac.cacheService.InvalidateByTableVersion(c.Request.Context(), tableVersion); err != nil {
		ac.logger.Error("Failed to invalidate cache", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INVALIDATE_ERROR", "Failed to invalidate cache: "+err.Error())
		return
	}

	ac.logger.Info("Cache invalidated",
		zap.String("table_version", tableVersion),
		zap.Duration("duration", time.Since(startTime)))

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success: true,
		Message: "Cache invalidated",
		Data: map[string]interface{}{
			"table_version":      tableVersion,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// ExportData dumps a collection as JSON for backups.
func (ac *AdminController) ExportData(c *gin.Context) {
	dataType := c.Param("type")
	if dataType == "" {
		respondError(c, http.StatusBadRequest, "MISSING_TYPE", "Export data type is required")
		return
	}

	limit := queryInt(c, "limit", 10000)

	data, err := ac.adminService.ExportData(c.Request.Context(), dataType, limit)
	if err != nil {
		ac.logger.Error("Export failed", zap.String("data_type", dataType), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "EXPORT_ERROR", "Export failed: "+err.Error())
		return
	}

	filename := fmt.Sprintf("%s_export_%s.json", dataType, time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// queryInt reads an integer query parameter, falling back to def for
// missing or unusable values.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}
