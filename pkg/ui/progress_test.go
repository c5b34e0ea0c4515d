package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"igstories/internal/downloader"
	"igstories/pkg/scraper"
)

var _ scraper.Observer = (*ProgressReporter)(nil)

func TestProgressReporterCounts(t *testing.T) {
	r := NewProgressReporter(&bytes.Buffer{})

	jobs := []downloader.DownloadJob{{PostID: "1"}, {PostID: "2"}, {PostID: "3"}}
	for _, job := range jobs {
		r.Queued(job)
	}

	r.Finished(downloader.DownloadResult{Job: jobs[0], Result: downloader.Result{Written: 2048}})
	r.Finished(downloader.DownloadResult{Job: jobs[1], Result: downloader.Result{Existed: true}})
	r.Finished(downloader.DownloadResult{Job: jobs[2], Error: errors.New("boom")})
	r.Wait()

	queued, finished, failed := r.Counts()
	assert.Equal(t, int64(3), queued)
	assert.Equal(t, int64(3), finished)
	assert.Equal(t, int64(1), failed)
}

func TestProgressReporterWithoutJobs(t *testing.T) {
	r := NewProgressReporter(nil)
	r.Wait()

	queued, finished, failed := r.Counts()
	assert.Zero(t, queued+finished+failed)
}

func TestProgressReporterAbortsUnfinished(t *testing.T) {
	r := NewProgressReporter(nil)
	r.Queued(downloader.DownloadJob{PostID: "1"})
	r.Queued(downloader.DownloadJob{PostID: "2"})
	r.Finished(downloader.DownloadResult{})
	r.Wait()

	queued, finished, _ := r.Counts()
	assert.Equal(t, int64(2), queued)
	assert.Equal(t, int64(1), finished)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.n))
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	prev := Output
	Output = &out
	defer func() { Output = prev }()

	PrintSummary(scraper.Summary{
		Downloaded: 2,
		Bytes:      4096,
		Failed:     1,
		Failures:   []string{"9_1: download failed"},
		Archive:    "json/archive/1_snapshots.tar.zst",
	})

	text := out.String()
	assert.Contains(t, text, "4.0 KiB")
	assert.Contains(t, text, "1_snapshots.tar.zst")
	assert.Contains(t, text, "1 downloads failed")
	assert.True(t, strings.Contains(text, "9_1: download failed"))
}
