package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"igstories/pkg/logger"
	"igstories/pkg/ratelimit"
)

// MockDownloader is a mock implementation of FileDownloader
type MockDownloader struct {
	downloadDelay   time.Duration
	downloadError   error
	downloadCounter int32
	existing        map[string]bool
	mu              sync.Mutex
}

func (m *MockDownloader) Download(ctx context.Context, url, dest string) (Result, error) {
	m.mu.Lock()
	existed := m.existing[dest]
	m.mu.Unlock()
	if existed {
		return Result{Path: dest, Existed: true}, nil
	}

	atomic.AddInt32(&m.downloadCounter, 1)
	if m.downloadDelay > 0 {
		select {
		case <-time.After(m.downloadDelay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if m.downloadError != nil {
		return Result{}, m.downloadError
	}
	return Result{Path: dest, Written: 15}, nil
}

func (m *MockDownloader) GetDownloadCount() int {
	return int(atomic.LoadInt32(&m.downloadCounter))
}

func runJobs(t *testing.T, pool *WorkerPool, jobs []DownloadJob) []DownloadResult {
	t.Helper()

	var results []DownloadResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	for _, job := range jobs {
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %s: %v", job.PostID, err)
		}
	}

	pool.Stop()
	wg.Wait()
	return results
}

func makeJobs(n int) []DownloadJob {
	jobs := make([]DownloadJob, n)
	for i := range jobs {
		jobs[i] = DownloadJob{
			URL:    fmt.Sprintf("https://example.com/media%d.jpg", i),
			Path:   fmt.Sprintf("/tmp/out/%d.jpg", i),
			UserID: "1",
			PostID: fmt.Sprintf("post%d", i),
		}
	}
	return jobs
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mock := &MockDownloader{downloadDelay: 10 * time.Millisecond}
	pool := NewWorkerPool(context.Background(), 3, mock, ratelimit.NewTokenBucket(100, time.Second, 100), logger.NewNopLogger())
	pool.Start()

	numJobs := 10
	results := runJobs(t, pool, makeJobs(numJobs))

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	successCount := 0
	for _, result := range results {
		if result.Success() {
			successCount++
		}
	}
	if successCount != numJobs {
		t.Errorf("Expected %d successful downloads, got %d", numJobs, successCount)
	}
	if mock.GetDownloadCount() != numJobs {
		t.Errorf("Expected %d download calls, got %d", numJobs, mock.GetDownloadCount())
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mock := &MockDownloader{downloadError: fmt.Errorf("download error")}
	pool := NewWorkerPool(context.Background(), 2, mock, nil, logger.NewNopLogger())
	pool.Start()

	numJobs := 5
	results := runJobs(t, pool, makeJobs(numJobs))

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
	for _, result := range results {
		if result.Success() {
			t.Error("Expected all downloads to fail")
		}
		if result.Error == nil {
			t.Error("Expected error in result")
		}
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mock := &MockDownloader{downloadDelay: 100 * time.Millisecond}
	pool := NewWorkerPool(context.Background(), 5, mock, nil, logger.NewNopLogger())
	pool.Start()

	numJobs := 10
	startTime := time.Now()
	results := runJobs(t, pool, makeJobs(numJobs))
	elapsed := time.Since(startTime)

	// 5 workers and 10 jobs of 100ms each take about 200ms
	expectedTime := 600 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Downloads took too long: %v (expected < %v)", elapsed, expectedTime)
	}
	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
}

func TestWorkerPoolAlreadyPresent(t *testing.T) {
	jobs := makeJobs(4)
	mock := &MockDownloader{existing: map[string]bool{
		jobs[1].Path: true,
		jobs[3].Path: true,
	}}
	pool := NewWorkerPool(context.Background(), 2, mock, nil, logger.NewNopLogger())
	pool.Start()

	results := runJobs(t, pool, jobs)

	if len(results) != len(jobs) {
		t.Errorf("Expected %d results, got %d", len(jobs), len(results))
	}
	existed := 0
	for _, r := range results {
		if r.Result.Existed {
			existed++
		}
	}
	if existed != 2 {
		t.Errorf("Expected 2 already present, got %d", existed)
	}
	if mock.GetDownloadCount() != 2 {
		t.Errorf("Expected 2 downloads, got %d", mock.GetDownloadCount())
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &MockDownloader{downloadDelay: time.Second}
	pool := NewWorkerPool(ctx, 2, mock, nil, logger.NewNopLogger())
	pool.Start()

	var results []DownloadResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			results = append(results, r)
		}
	}()

	for _, job := range makeJobs(4) {
		if err := pool.Submit(job); err != nil {
			t.Fatalf("Failed to submit job: %v", err)
		}
	}

	start := time.Now()
	cancel()
	pool.Stop()
	<-done

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop after cancel took %v", elapsed)
	}
	if len(results) != 4 {
		t.Fatalf("Expected every job to be reported, got %d", len(results))
	}
	for _, r := range results {
		if r.Success() {
			t.Error("Expected cancelled jobs to fail")
		}
	}

	if err := pool.Submit(makeJobs(1)[0]); err == nil {
		t.Error("Expected Submit to fail after cancellation")
	}
}

func TestWorkerPoolWithDownloader(t *testing.T) {
	fetcher := newMockFetcher()
	dir := t.TempDir()

	var jobs []DownloadJob
	for i := 0; i < 6; i++ {
		url := fmt.Sprintf("u%d", i)
		fetcher.bodies[url] = []byte(url)
		jobs = append(jobs, DownloadJob{URL: url, Path: filepath.Join(dir, url+".jpg"), PostID: url})
	}
	// same post seen twice
	jobs = append(jobs, jobs[0])

	pool := NewWorkerPool(context.Background(), 3, New(fetcher, logger.NewNopLogger()), nil, logger.NewNopLogger())
	pool.Start()
	results := runJobs(t, pool, jobs)

	written, existed := 0, 0
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("Unexpected error for %s: %v", r.Job.PostID, r.Error)
			continue
		}
		if r.Result.Existed {
			existed++
		} else {
			written++
		}
	}
	if written != 6 || existed != 1 {
		t.Errorf("Expected 6 written and 1 existing, got %d and %d", written, existed)
	}
	if fetcher.Calls() != 6 {
		t.Errorf("Expected 6 fetches, got %d", fetcher.Calls())
	}
}
