package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	errs "igstories/pkg/errors"
)

// ErrStalled is wrapped by stream reads that saw no data for a full timeout.
var ErrStalled = errors.New("stream stalled")

// idleReader cancels its request when a single Read waits longer than
// timeout for data. Time spent between reads is not counted.
type idleReader struct {
	body    io.ReadCloser
	timeout time.Duration
	url     string
	timer   *time.Timer
	cancel  context.CancelFunc
	stalled atomic.Bool
}

func newIdleReader(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc, url string) *idleReader {
	r := &idleReader{
		body:    body,
		timeout: timeout,
		url:     url,
		cancel:  cancel,
	}
	r.timer = time.AfterFunc(timeout, func() {
		r.stalled.Store(true)
		cancel()
	})
	r.timer.Stop()
	return r
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.timer.Reset(r.timeout)
	n, err := r.body.Read(p)
	r.timer.Stop()
	if r.stalled.Load() {
		return n, &errs.RemoteError{
			URL: r.url,
			Err: fmt.Errorf("%w: no data for %s", ErrStalled, r.timeout),
		}
	}
	return n, err
}

func (r *idleReader) Close() error {
	r.timer.Stop()
	err := r.body.Close()
	r.cancel()
	return err
}
