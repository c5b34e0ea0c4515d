package ui

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"igstories/internal/downloader"
)

// ProgressReporter draws one bar for a run's downloads. Jobs are queued
// while the run discovers them, so the total grows as it goes.
type ProgressReporter struct {
	progress *mpb.Progress
	bar      *mpb.Bar

	queued   atomic.Int64
	finished atomic.Int64
	failed   atomic.Int64
	existed  atomic.Int64
	bytes    atomic.Int64
}

// NewProgressReporter renders to w; a nil w discards output
func NewProgressReporter(w io.Writer) *ProgressReporter {
	r := &ProgressReporter{
		progress: mpb.New(mpb.WithWidth(48), mpb.WithOutput(w)),
	}

	r.bar = r.progress.AddBar(0,
		mpb.PrependDecorators(
			decor.Name("stories", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return fmt.Sprintf("%s | %d present | %d failed",
					FormatBytes(r.bytes.Load()), r.existed.Load(), r.failed.Load())
			}, decor.WCSyncSpace),
			decor.Name(" | "),
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO), "done"),
		),
	)
	return r
}

// Queued grows the bar's total
func (r *ProgressReporter) Queued(job downloader.DownloadJob) {
	r.bar.SetTotal(r.queued.Add(1), false)
}

// Finished advances the bar
func (r *ProgressReporter) Finished(result downloader.DownloadResult) {
	switch {
	case result.Error != nil:
		r.failed.Add(1)
	case result.Result.Existed:
		r.existed.Add(1)
	default:
		r.bytes.Add(result.Result.Written)
	}
	r.finished.Add(1)
	r.bar.Increment()
}

// Wait completes the bar and blocks until it is rendered. Call it once
// after the run returns.
func (r *ProgressReporter) Wait() {
	if r.finished.Load() < r.queued.Load() {
		r.bar.Abort(false)
	} else {
		r.bar.SetTotal(-1, true)
	}
	r.progress.Wait()
}

// Counts returns queued, finished and failed job totals
func (r *ProgressReporter) Counts() (queued, finished, failed int64) {
	return r.queued.Load(), r.finished.Load(), r.failed.Load()
}
