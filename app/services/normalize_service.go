package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/address-normalizer/app/models"
	"github.com/address-normalizer/helpers/utils"
	"github.com/address-normalizer/internal/parser"
	"github.com/address-normalizer/internal/phone"
	"github.com/address-normalizer/internal/search"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NormalizeService runs raw inputs through the normalization pipeline,
// consults the result cache, queues low-confidence results for review,
// and manages background batch jobs.
type NormalizeService struct {
	pipeline    *parser.Pipeline
	cache       ICacheService
	reviewStore ReviewStore
	searcher    *search.ReviewSearcher
	logger      *zap.Logger
	startTime   time.Time
	workers     int
	mu          sync.RWMutex

	// Job management
	jobs       map[string]*JobStatus
	jobResults map[string][]*models.NormalizationResult

	// Rolling counters since startup
	totalProcessed  atomic.Int64
	totalNormalized atomic.Int64
	totalCacheHits  atomic.Int64
	reviewsQueued   atomic.Int64
	sumProcessingMs atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// JobStatus tracks a batch job's progress.
type JobStatus struct {
	JobID              string
	Status             string
	Progress           float64
	Processed          int
	Total              int
	EstimatedRemaining int
	Message            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ServiceCounters aggregates pipeline activity since startup.
type ServiceCounters struct {
	TotalProcessed  int64
	TotalNormalized int64
	CacheHits       int64
	ReviewsQueued   int64
	AvgProcessingMs float64
}

// NewNormalizeService creates the service. Cache, review store and
// searcher may be nil; those paths are skipped when absent.
func NewNormalizeService(pipeline *parser.Pipeline, cache ICacheService, reviewStore ReviewStore, searcher *search.ReviewSearcher, workers int, logger *zap.Logger) *NormalizeService {
	if workers <= 0 {
		workers = 4
	}
	return &NormalizeService{
		pipeline:    pipeline,
		cache:       cache,
		reviewStore: reviewStore,
		searcher:    searcher,
		logger:      logger,
		startTime:   time.Now(),
		workers:     workers,
		jobs:        make(map[string]*JobStatus),
		jobResults:  make(map[string][]*models.NormalizationResult),
		stopCh:      make(chan struct{}),
	}
}

// Normalize runs one raw address through the pipeline. The second
// return value reports whether the result came from the cache.
func (ns *NormalizeService) Normalize(ctx context.Context, rawAddress string, useCache bool) (*models.NormalizationResult, bool, error) {
	if strings.TrimSpace(rawAddress) == "" {
		return nil, false, errors.New("address must not be empty")
	}

	if useCache && ns.cache != nil {
		if cached, found, err := ns.cache.Get(ctx, rawAddress); err == nil && found {
			ns.totalCacheHits.Add(1)
			return cached, true, nil
		}
	}

	startTime := time.Now()
	res := ns.pipeline.NormalizeAddress(rawAddress)
	result := models.NewNormalizationResult(res, time.Since(startTime))

	ns.totalProcessed.Add(1)
	ns.sumProcessingMs.Add(result.ProcessingMs)
	if result.Status == models.StatusNormalized {
		ns.totalNormalized.Add(1)
	}

	if useCache && ns.cache != nil {
		if err := ns.cache.Set(ctx, rawAddress, result); err != nil {
			ns.logger.Warn("Failed to cache result", zap.Error(err))
		}
	}

	if result.NeedsReview() {
		ns.enqueueReview(ctx, result)
	}

	return result, false, nil
}

// NormalizePhone canonicalizes a single US or Canadian phone number.
func (ns *NormalizeService) NormalizePhone(rawPhone string) (string, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// enqueueReview adds a flagged result to the review queue. Queue
// failures are logged, never surfaced to the caller.
func (ns *NormalizeService) enqueueReview(ctx context.Context, result *models.NormalizationResult) {
	if ns.reviewStore == nil {
		return
	}

	review := models.NewNormalizationReview(utils.GenerateUUID(), result)
	if err := ns.reviewStore.Insert(ctx, review); err != nil {
		ns.logger.Warn("Failed to queue result for review",
			zap.String("raw", result.Raw),
			zap.Error(err))
		return
	}
	ns.reviewsQueued.Add(1)

	if ns.searcher != nil {
		if err := ns.searcher.IndexReview(review); err != nil {
			ns.logger.Warn("Failed to index review entry",
				zap.String("review_id", review.ID),
				zap.Error(err))
		}
	}
}

// EstimateBatchProcessingTime estimates batch duration in seconds.
func (ns *NormalizeService) EstimateBatchProcessingTime(addressCount int) int {
	// Assume roughly 100ms per address, spread across the worker pool.
	estimatedMs := addressCount * 100 / ns.workers
	return estimatedMs / 1000
}

// ProcessBatchJob normalizes a batch in the background, fanning the
// items across the worker pool and tracking progress under the job ID.
func (ns *NormalizeService) ProcessBatchJob(jobID string, addresses []string, useCache bool) {
	ns.mu.Lock()
	ns.jobs[jobID] = &JobStatus{
		JobID:     jobID,
		Status:    "running",
		Progress:  0.0,
		Processed: 0,
		Total:     len(addresses),
		Message:   "Processing batch",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	ns.mu.Unlock()

	// The request that spawned the job is long gone; the job owns its
	// own lifetime.
	ctx := context.Background()

	results := make([]*models.NormalizationResult, len(addresses))
	var g errgroup.Group
	g.SetLimit(ns.workers)

	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			result, _, err := ns.Normalize(ctx, address, useCache)
			if err != nil {
				result = &models.NormalizationResult{
					Raw:        address,
					Tags:       map[string]string{},
					Status:     models.StatusUnparsed,
					Confidence: 0.0,
					CreatedAt:  time.Now(),
				}
			}
			results[i] = result
			ns.advanceJob(jobID)
			return nil
		})
	}
	g.Wait()

	ns.mu.Lock()
	ns.jobResults[jobID] = results
	if job, exists := ns.jobs[jobID]; exists {
		job.Status = "done"
		job.Progress = 1.0
		job.EstimatedRemaining = 0
		job.Message = "Batch complete"
		job.UpdatedAt = time.Now()
	}
	ns.mu.Unlock()

	ns.logger.Info("Batch job completed",
		zap.String("job_id", jobID),
		zap.Int("total_addresses", len(addresses)))
}

// advanceJob bumps a job's processed count and progress snapshot.
func (ns *NormalizeService) advanceJob(jobID string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	job, exists := ns.jobs[jobID]
	if !exists {
		return
	}
	job.Processed++
	job.Progress = float64(job.Processed) / float64(job.Total)
	job.UpdatedAt = time.Now()

	if job.Processed < job.Total {
		elapsed := time.Since(job.CreatedAt)
		perItem := elapsed / time.Duration(job.Processed)
		job.EstimatedRemaining = int((perItem * time.Duration(job.Total-job.Processed)).Seconds())
	} else {
		job.EstimatedRemaining = 0
	}
}

// GetJobStatus returns a snapshot of the job's progress.
func (ns *NormalizeService) GetJobStatus(jobID string) (*JobStatus, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	job, exists := ns.jobs[jobID]
	if !exists {
		return nil, errors.New("job not found")
	}

	// Snapshot so callers never read a live entry the workers mutate.
	snapshot := *job
	return &snapshot, nil
}

// GetJobResults returns the finished results for a job.
func (ns *NormalizeService) GetJobResults(jobID string) ([]*models.NormalizationResult, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	results, exists := ns.jobResults[jobID]
	if !exists {
		return nil, errors.New("job results not found")
	}

	return results, nil
}

// GetJobResultsStream returns job results as a channel for streaming.
func (ns *NormalizeService) GetJobResultsStream(jobID string) (<-chan *models.NormalizationResult, error) {
	results, err := ns.GetJobResults(jobID)
	if err != nil {
		return nil, err
	}

	resultChannel := make(chan *models.NormalizationResult, 100)

	go func() {
		defer close(resultChannel)
		for _, result := range results {
			resultChannel <- result
		}
	}()

	return resultChannel, nil
}

// GetStartTime returns the service start time.
func (ns *NormalizeService) GetStartTime() time.Time {
	return ns.startTime
}

// Counters returns the rolling activity counters.
func (ns *NormalizeService) Counters() ServiceCounters {
	processed := ns.totalProcessed.Load()
	counters := ServiceCounters{
		TotalProcessed:  processed,
		TotalNormalized: ns.totalNormalized.Load(),
		CacheHits:       ns.totalCacheHits.Load(),
		ReviewsQueued:   ns.reviewsQueued.Load(),
	}
	if processed > 0 {
		counters.AvgProcessingMs = float64(ns.sumProcessingMs.Load()) / float64(processed)
	}
	return counters
}

// GetStats returns service-level runtime statistics.
func (ns *NormalizeService) GetStats() map[string]interface{} {
	ns.mu.RLock()
	activeJobs := len(ns.jobs)
	ns.mu.RUnlock()

	uptime := time.Since(ns.startTime)
	counters := ns.Counters()

	return map[string]interface{}{
		"uptime_seconds":    int64(uptime.Seconds()),
		"start_time":        ns.startTime.Format(time.RFC3339),
		"status":            "running",
		"total_processed":   counters.TotalProcessed,
		"total_normalized":  counters.TotalNormalized,
		"cache_hits":        counters.CacheHits,
		"reviews_queued":    counters.ReviewsQueued,
		"avg_processing_ms": counters.AvgProcessingMs,
		"active_jobs":       activeJobs,
	}
}

// CleanupJobs drops finished jobs older than maxAge and returns the
// number removed.
func (ns *NormalizeService) CleanupJobs(maxAge time.Duration) int {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for jobID, job := range ns.jobs {
		if job.Status == "done" && job.UpdatedAt.Before(cutoff) {
			delete(ns.jobs, jobID)
			delete(ns.jobResults, jobID)
			removed++
		}
	}
	return removed
}

// StartJobCleanup periodically drops finished jobs older than maxAge.
func (ns *NormalizeService) StartJobCleanup(interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := ns.CleanupJobs(maxAge); removed > 0 {
					ns.logger.Debug("Cleaned up finished jobs", zap.Int("removed", removed))
				}
			case <-ns.stopCh:
				return
			}
		}
	}()
}

// Close stops the job cleanup worker.
func (ns *NormalizeService) Close() {
	ns.stopOnce.Do(func() {
		close(ns.stopCh)
	})
}
