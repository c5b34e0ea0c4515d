package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"igstories/pkg/logger"
)

// ChunkSize is the size of each read from the response body
const ChunkSize = 4 << 20

// ErrEmptyBody is returned when the remote answered with zero bytes.
var ErrEmptyBody = errors.New("empty response body")

// Fetcher opens a media URL for streaming
type Fetcher interface {
	GetStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Result describes the outcome of a successful Download
type Result struct {
	Path    string
	Written int64
	// Existed is true when a complete file was already at Path
	Existed bool
}

// Downloader writes remote media to disk exactly once per destination.
//
// Writers of one destination serialize on an advisory lock file next to it,
// so separate processes sharing an output root never fetch the same media
// twice. The body is streamed into a hidden temp file and hard-linked into
// place once complete, which fails if another writer published first.
// Readers therefore only ever see a missing file or the finished one.
// Zero-byte files are leftovers and treated as absent.
type Downloader struct {
	fetcher Fetcher
	logger  logger.Logger
	group   singleflight.Group
	buffers sync.Pool
}

// New creates a Downloader fetching through f
func New(f Fetcher, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		fetcher: f,
		logger:  log,
		buffers: sync.Pool{New: func() interface{} {
			b := make([]byte, ChunkSize)
			return &b
		}},
	}
}

// Download fetches url into dest unless a nonzero file is already there.
// Concurrent calls for the same dest share one fetch; callers that did not
// perform it see Existed. An empty url is a no-op.
func (d *Downloader) Download(ctx context.Context, url, dest string) (Result, error) {
	if url == "" {
		return Result{Path: dest}, nil
	}

	leader := false
	v, err, _ := d.group.Do(dest, func() (interface{}, error) {
		leader = true
		return d.download(ctx, url, dest)
	})
	res, _ := v.(Result)
	res.Path = dest
	if err != nil {
		return res, err
	}
	if !leader {
		res.Existed = true
		res.Written = 0
	}
	return res, nil
}

func (d *Downloader) download(ctx context.Context, url, dest string) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create directory: %w", err)
	}

	present, err := complete(dest)
	if err != nil {
		return Result{}, err
	}
	if present {
		return Result{Existed: true}, nil
	}

	lock, err := acquire(ctx, dest)
	if err != nil {
		return Result{}, err
	}
	defer release(lock)

	// the previous holder may have published while we waited
	present, err = complete(dest)
	if err != nil {
		return Result{}, err
	}
	if present {
		return Result{Existed: true}, nil
	}

	written, published, err := d.fetch(ctx, url, dest)
	if err != nil {
		return Result{}, err
	}
	if !published {
		return Result{Existed: true}, nil
	}
	return Result{Written: written}, nil
}

// LockRetryDelay is how often a waiting writer retries the destination lock.
var LockRetryDelay = 50 * time.Millisecond

func lockPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".lock")
}

// acquire blocks until dest's lock file is held or ctx is done.
func acquire(ctx context.Context, dest string) (*flock.Flock, error) {
	lock := flock.New(lockPath(dest))
	locked, err := lock.TryLockContext(ctx, LockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock destination: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock destination %s", dest)
	}
	return lock, nil
}

// release unlocks and removes the lock file. A writer still waiting on the
// removed file may proceed alongside a newer one; publish keeps that safe.
func release(lock *flock.Flock) {
	lock.Unlock()
	os.Remove(lock.Path())
}

// complete reports whether dest holds a nonzero file. A zero-byte file is a
// leftover of an interrupted attempt and is removed.
func complete(dest string) (bool, error) {
	info, err := os.Stat(dest)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat destination: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("destination %s is a directory", dest)
	case info.Size() > 0:
		return true, nil
	}

	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to remove empty file: %w", err)
	}
	return false, nil
}

// publish moves the finished temp file to dest without replacing an
// existing file. It reports false when dest was already there. Filesystems
// without hard links fall back to a rename.
func publish(tmpName, dest string) (bool, error) {
	defer os.Remove(tmpName)

	err := os.Link(tmpName, dest)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrExist):
		return false, nil
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return false, fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return true, nil
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) (int64, bool, error) {
	body, err := d.fetcher.GetStream(ctx, url)
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	done := false
	defer func() {
		if !done {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	buf := d.buffers.Get().(*[]byte)
	written, err := copyChunks(ctx, tmp, body, *buf)
	d.buffers.Put(buf)
	if err != nil {
		return written, false, fmt.Errorf("failed to write media: %w", err)
	}
	if written == 0 {
		return 0, false, ErrEmptyBody
	}

	if err := tmp.Sync(); err != nil {
		return written, false, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return written, false, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return written, false, fmt.Errorf("failed to set file mode: %w", err)
	}
	done = true
	published, err := publish(tmpName, dest)
	return written, published, err
}

// copyChunks copies src to dst in len(buf) reads, checking ctx between them.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
