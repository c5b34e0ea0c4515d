package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"igstories/pkg/logger"
	"igstories/pkg/ratelimit"
)

// FileDownloader downloads one URL to one path
type FileDownloader interface {
	Download(ctx context.Context, url, dest string) (Result, error)
}

// DownloadJob represents a single download task
type DownloadJob struct {
	URL  string
	Path string
	// UserID and PostID are carried into logs and results
	UserID string
	PostID string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Result   Result
	Error    error
	Duration time.Duration
}

// Success reports whether the file is present after the job
func (r DownloadResult) Success() bool {
	return r.Error == nil
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	downloader  FileDownloader
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
	stopOnce    sync.Once
}

// NewWorkerPool creates a download worker pool. Cancelling ctx aborts all
// in-flight downloads.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	d FileDownloader,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		downloader:  d,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes Results. Submit must not
// be called after Stop.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
		wp.logger.Debug("worker pool stopped")
	})
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	default:
	}

	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("job submitted to queue", map[string]interface{}{
			"post_id": job.PostID,
			"path":    job.Path,
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results. It
// must be drained until closed.
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

// worker is the main worker routine. After cancellation queued jobs are
// still reported, failing fast with the context error.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.resultQueue <- wp.processJob(job, id)
	}
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	if wp.rateLimiter != nil {
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			result.Error = fmt.Errorf("rate limiter: %w", err)
			result.Duration = time.Since(start)
			return result
		}
	}

	res, err := wp.downloader.Download(wp.ctx, job.URL, job.Path)
	result.Result = res
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
	}

	fields := map[string]interface{}{
		"worker_id": workerID,
		"user_id":   job.UserID,
		"post_id":   job.PostID,
		"duration":  result.Duration,
	}
	if err != nil {
		fields["error"] = err.Error()
		wp.logger.WarnWithFields("worker failed to download media", fields)
	} else {
		fields["bytes"] = res.Written
		fields["existed"] = res.Existed
		wp.logger.DebugWithFields("worker completed job", fields)
	}

	return result
}
