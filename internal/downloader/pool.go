package downloader

import (
	"context"
	"io"
	"sync"
	"time"

	"vkdump/pkg/logger"
)

// DownloadJob represents a single download task
type DownloadJob struct {
	URL     string
	Dest    string
	PhotoID int64
}

// Status classifies the outcome of one job
type Status int

const (
	// StatusDownloaded means the file was newly written to disk
	StatusDownloaded Status = iota
	// StatusSkipped means the destination already existed; not a new download
	StatusSkipped
	// StatusFailed means the request or the write failed; siblings unaffected
	StatusFailed
)

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Status   Status
	Error    error
	Duration time.Duration
}

// PhotoOpener opens a streamed reader for a photo URL
type PhotoOpener interface {
	OpenPhoto(ctx context.Context, url string) (io.ReadCloser, error)
}

// PhotoStorage checks for and writes destination files
type PhotoStorage interface {
	Exists(dest string) bool
	Save(r io.Reader, dest string) error
}

// BatchResult aggregates one batch of jobs
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Pool runs download jobs on a bounded set of workers. One Run call handles
// one page's batch: it returns only after every submitted job has finished,
// so the caller may persist pagination state the moment Run returns.
type Pool struct {
	numWorkers int
	client     PhotoOpener
	storage    PhotoStorage
	timeout    time.Duration
	logger     logger.Logger
}

// NewPool creates a download pool with the given concurrency bound
func NewPool(numWorkers int, client PhotoOpener, storage PhotoStorage, timeout time.Duration, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers: numWorkers,
		client:     client,
		storage:    storage,
		timeout:    timeout,
		logger:     log,
	}
}

// Run executes one batch of jobs with at most numWorkers in flight and joins
// all of them before returning. Jobs whose destination already exists are
// skipped; a failed job is logged and counted, never retried, and never
// affects its siblings.
func (p *Pool) Run(ctx context.Context, jobs []DownloadJob) BatchResult {
	if len(jobs) == 0 {
		return BatchResult{}
	}

	jobQueue := make(chan DownloadJob)
	resultQueue := make(chan DownloadResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, jobQueue, resultQueue, &wg)
	}

	for _, job := range jobs {
		select {
		case jobQueue <- job:
		case <-ctx.Done():
			// Stop feeding; workers drain and exit
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobQueue)

	wg.Wait()
	close(resultQueue)

	var batch BatchResult
	for result := range resultQueue {
		switch result.Status {
		case StatusDownloaded:
			batch.Downloaded++
		case StatusSkipped:
			batch.Skipped++
		case StatusFailed:
			batch.Failed++
		}
	}

	return batch
}

// worker is the main worker routine
func (p *Pool) worker(ctx context.Context, id int, jobs <-chan DownloadJob, results chan<- DownloadResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			p.logger.DebugWithFields("worker stopping, context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		results <- p.processJob(ctx, job, id)
	}
}

// processJob handles a single download job
func (p *Pool) processJob(ctx context.Context, job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	if p.storage.Exists(job.Dest) {
		p.logger.DebugWithFields("photo already on disk", map[string]interface{}{
			"worker_id": workerID,
			"photo_id":  job.PhotoID,
			"dest":      job.Dest,
		})
		result.Status = StatusSkipped
		result.Duration = time.Since(start)
		return result
	}

	jobCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, err := p.client.OpenPhoto(jobCtx, job.URL)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err
		result.Duration = time.Since(start)

		p.logger.DebugWithFields("download failed", map[string]interface{}{
			"worker_id": workerID,
			"photo_id":  job.PhotoID,
			"url":       job.URL,
			"error":     err.Error(),
		})

		return result
	}
	defer body.Close()

	if err := p.storage.Save(body, job.Dest); err != nil {
		result.Status = StatusFailed
		result.Error = err
		result.Duration = time.Since(start)

		p.logger.DebugWithFields("save failed", map[string]interface{}{
			"worker_id": workerID,
			"photo_id":  job.PhotoID,
			"dest":      job.Dest,
			"error":     err.Error(),
		})

		return result
	}

	result.Status = StatusDownloaded
	result.Duration = time.Since(start)

	p.logger.DebugWithFields("photo downloaded", map[string]interface{}{
		"worker_id": workerID,
		"photo_id":  job.PhotoID,
		"dest":      job.Dest,
		"duration":  result.Duration,
	})

	return result
}
