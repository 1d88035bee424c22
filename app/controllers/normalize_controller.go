package controllers

import (
	"compress/gzip"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/address-normalizer/app/requests"
	"github.com/address-normalizer/app/responses"
	"github.com/address-normalizer/app/services"
	"github.com/address-normalizer/helpers/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NormalizeController handles address and phone normalization requests.
type NormalizeController struct {
	normalizeService *services.NormalizeService
	cacheService     services.ICacheService
	logger           *zap.Logger
}

// NewNormalizeController creates the controller. The cache service may
// be nil; health reporting marks it disabled.
func NewNormalizeController(normalizeService *services.NormalizeService, cacheService services.ICacheService, logger *zap.Logger) *NormalizeController {
	return &NormalizeController{
		normalizeService: normalizeService,
		cacheService:     cacheService,
		logger:           logger,
	}
}

// NormalizeAddress normalizes a single address.
func (nc *NormalizeController) NormalizeAddress(c *gin.Context) {
	var req requests.NormalizeAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	startTime := time.Now()

	result, cacheHit, err := nc.normalizeService.Normalize(c.Request.Context(), req.Address, req.Options.UseCache)
	if err != nil {
		respondError(c, http.StatusBadRequest, "NORMALIZE_ERROR", "Failed to normalize address: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.NormalizeAddressResponse{
		Result:           result,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		CacheHit:         cacheHit,
	})
}

// NormalizePhone normalizes a single phone number. Inputs that are not
// valid ten-digit NANP numbers get a 422.
func (nc *NormalizeController) NormalizePhone(c *gin.Context) {
	var req requests.NormalizePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	normalized, err := nc.normalizeService.NormalizePhone(req.Phone)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "INVALID_PHONE", "Cannot normalize phone number: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.NormalizePhoneResponse{
		Raw:        req.Phone,
		Normalized: normalized,
	})
}

// BatchNormalize accepts a batch of addresses and starts a background job.
func (nc *NormalizeController) BatchNormalize(c *gin.Context) {
	var req requests.BatchNormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	jobID := utils.GenerateUUID()
	estimatedTime := nc.normalizeService.EstimateBatchProcessingTime(len(req.Addresses))

	go nc.normalizeService.ProcessBatchJob(jobID, req.Addresses, req.Options.UseCache)

	c.JSON(http.StatusAccepted, responses.BatchNormalizeResponse{
		JobID:            jobID,
		EstimatedSeconds: estimatedTime,
		TotalAddresses:   len(req.Addresses),
		Message:          "Job accepted and processing",
	})
}

// GetJobStatus reports a batch job's progress.
func (nc *NormalizeController) GetJobStatus(c *gin.Context) {
	jobID := c.Param("jobID")
	if jobID == "" {
		respondError(c, http.StatusBadRequest, "MISSING_JOB_ID", "Job ID is required")
		return
	}

	status, err := nc.normalizeService.GetJobStatus(jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.JobStatusResponse{
		JobID:              jobID,
		Status:             status.Status,
		Progress:           status.Progress,
		Processed:          status.Processed,
		Total:              status.Total,
		EstimatedRemaining: status.EstimatedRemaining,
		Message:            status.Message,
	})
}

// GetJobResults returns a finished job's results, as a JSON envelope by
// default or as NDJSON when ?format=ndjson (optionally gzipped).
func (nc *NormalizeController) GetJobResults(c *gin.Context) {
	jobID := c.Param("jobID")
	if jobID == "" {
		respondError(c, http.StatusBadRequest, "MISSING_JOB_ID", "Job ID is required")
		return
	}

	format := c.Query("format")
	gzipEnabled := c.Query("gzip") == "1" ||
		strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")

	if format == "ndjson" {
		nc.streamNDJSONResults(c, jobID, gzipEnabled)
		return
	}

	results, err := nc.normalizeService.GetJobResults(jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Results retrieved",
		Data:      results,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HealthCheck reports overall service health.
func (nc *NormalizeController) HealthCheck(c *gin.Context) {
	uptime := time.Since(nc.normalizeService.GetStartTime())

	cacheStatus := "disabled"
	if nc.cacheService != nil {
		cacheStatus = "healthy"
	}

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    uptime.String(),
		Version:   apiVersion,
		Services: map[string]string{
			"pipeline": "healthy",
			"cache":    cacheStatus,
		},
	})
}

// ReadinessCheck reports whether the service can take traffic.
func (nc *NormalizeController) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Metrics exposes service counters as JSON for internal scraping.
func (nc *NormalizeController) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, nc.normalizeService.GetStats())
}

// LivenessCheck reports that the process is responsive.
func (nc *NormalizeController) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// streamNDJSONResults streams results one JSON document per line,
// optionally gzip-compressed.
func (nc *NormalizeController) streamNDJSONResults(c *gin.Context, jobID string, gzipEnabled bool) {
	resultChannel, err := nc.normalizeService.GetJobResultsStream(jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
	}

	var writer gin.ResponseWriter = c.Writer
	if gzipEnabled {
		gzWriter := gzip.NewWriter(c.Writer)
		defer gzWriter.Close()
		writer = &gzipResponseWriter{
			ResponseWriter: c.Writer,
			gzWriter:       gzWriter,
		}
	}

	encoder := json.NewEncoder(writer)
	for result := range resultChannel {
		if err := encoder.Encode(result); err != nil {
			nc.logger.Error("Failed to encode NDJSON result", zap.Error(err))
			break
		}

		if flusher, ok := writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

// gzipResponseWriter routes writes through a gzip writer.
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzWriter.Write(data)
}

func (w *gzipResponseWriter) Flush() {
	w.gzWriter.Flush()
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
