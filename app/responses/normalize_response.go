package responses

import (
	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/internal/search"
)

// NormalizeAddressResponse carries one normalization result.
type NormalizeAddressResponse struct {
	Result           *models.NormalizationResult `json:"result"`
	ProcessingTimeMs int64                       `json:"processing_time_ms"` // wall time for this request
	CacheHit         bool                        `json:"cache_hit"`
}

// NormalizePhoneResponse carries one canonical phone number.
type NormalizePhoneResponse struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"` // "+1 NNN-NNN-NNNN"
}

// BatchNormalizeResponse acknowledges a submitted batch job.
type BatchNormalizeResponse struct {
	JobID            string `json:"job_id"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	TotalAddresses   int    `json:"total_addresses"`
	Message          string `json:"message"`
}

// JobStatusResponse reports batch job progress.
type JobStatusResponse struct {
	JobID              string  `json:"job_id"`
	Status             string  `json:"status"`
	Progress           float64 `json:"progress"` // 0.0 - 1.0
	Processed          int     `json:"processed"`
	Total              int     `json:"total"`
	EstimatedRemaining int     `json:"estimated_remaining"` // seconds
	Message            string  `json:"message"`
}

// ReviewListResponse pages through the review queue.
type ReviewListResponse struct {
	Reviews  []*models.NormalizationReview `json:"reviews"`
	Total    int64                         `json:"total"` // entries matching the filter
	Pending  int64                         `json:"pending"`
	Approved int64                         `json:"approved"`
	Rejected int64                         `json:"rejected"`
	Limit    int                           `json:"limit"`
	Offset   int                           `json:"offset"`
}

// ReviewActionResponse confirms a review state change.
type ReviewActionResponse struct {
	Success   bool   `json:"success"`
	ReviewID  string `json:"review_id"`
	Action    string `json:"action"` // approve, reject or correct
	Message   string `json:"message"`
	UpdatedAt string `json:"updated_at"`
}

// SearchReviewsResponse carries full-text hits over the review index.
type SearchReviewsResponse struct {
	Query string             `json:"query"`
	Hits  []search.ReviewHit `json:"hits"`
	Count int                `json:"count"`
}

// ImportAliasesResponse reports an alias import or its dry run.
type ImportAliasesResponse struct {
	ValidationPassed bool     `json:"validation_passed"`
	Warnings         []string `json:"warnings,omitempty"`
	AliasesImported  int      `json:"aliases_imported,omitempty"`
	SynonymsUpdated  bool     `json:"synonyms_updated,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms,omitempty"`
	DryRun           bool     `json:"dry_run"`
	Message          string   `json:"message"`
}

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error     string      `json:"error"` // machine-readable code
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// SuccessResponse is the generic success envelope.
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// HealthCheckResponse reports component health.
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// SystemStatsResponse aggregates admin statistics.
type SystemStatsResponse struct {
	CacheHitRate        float64       `json:"cache_hit_rate"`
	AccuracyRate        float64       `json:"accuracy_rate"` // share of inputs normalized without flags
	AvgProcessingTimeMs float64       `json:"avg_processing_time_ms"`
	TotalProcessed      int64         `json:"total_processed"`
	ReviewQueueSize     int64         `json:"review_queue_size"`
	SystemInfo          SystemInfo    `json:"system_info"`
	DatabaseStats       DatabaseStats `json:"database_stats"`
}

// SystemInfo describes the running process.
type SystemInfo struct {
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	MemoryUsage map[string]interface{} `json:"memory_usage"`
}

// DatabaseStats holds per-collection document counts.
type DatabaseStats struct {
	ResultCache    int64 `json:"result_cache"`
	Reviews        int64 `json:"reviews"`
	LearnedAliases int64 `json:"learned_aliases"`
}
