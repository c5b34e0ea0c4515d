package storage

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"igstories/pkg/logger"
)

const (
	snapshotExt   = ".json"
	archiveDir    = "archive"
	archiveSuffix = "_snapshots.tar.zst"
	maxSuffix     = 1000
)

// snapshotName matches the names SaveSnapshot produces, so unrelated JSON
// sharing the directory is never listed or archived.
var snapshotName = regexp.MustCompile(`^[0-9]+_[A-Za-z0-9_-]+\.json$`)

// Manager stores raw API responses as JSON snapshots and bundles them into
// compressed archives.
type Manager struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewManager creates a snapshot manager writing into dir
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		dir:    dir,
		logger: log,
		now:    time.Now,
	}, nil
}

// Dir returns the snapshot directory
func (m *Manager) Dir() string {
	return m.dir
}

// ArchiveDir returns where archives are written
func (m *Manager) ArchiveDir() string {
	return filepath.Join(m.dir, archiveDir)
}

// SaveSnapshot writes body to <dir>/<unix>_<kind>.json. Existing files are
// never overwritten; a colliding name gets a numeric suffix.
func (m *Manager) SaveSnapshot(kind string, body []byte) (string, error) {
	kind = sanitizeKind(kind)
	if kind == "" {
		return "", errors.New("snapshot kind is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	base := fmt.Sprintf("%d_%s", m.now().Unix(), kind)
	for i := 0; i < maxSuffix; i++ {
		name := base + snapshotExt
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, snapshotExt)
		}
		path := filepath.Join(m.dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot: %w", err)
		}

		_, err = f.Write(body)
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to write snapshot: %w", err)
		}

		m.logger.DebugWithFields("snapshot saved", map[string]interface{}{
			"path":  path,
			"bytes": len(body),
		})
		return path, nil
	}
	return "", fmt.Errorf("failed to create snapshot %s: too many collisions", base)
}

// Snapshots lists the loose snapshot files in name order. Only names of
// the <unix>_<kind>[_n].json form count.
func (m *Manager) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && snapshotName.MatchString(entry.Name()) {
			paths = append(paths, filepath.Join(m.dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Archive bundles all loose snapshots into a zstd-compressed tar under the
// archive directory and removes them once the archive is on disk. It
// returns the archive path and the number of files bundled; with nothing
// to bundle the path is empty.
func (m *Manager) Archive() (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths, err := m.Snapshots()
	if err != nil {
		return "", 0, err
	}
	if len(paths) == 0 {
		return "", 0, nil
	}

	dir := m.ArchiveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".archive-*.part")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeArchive(tmp, paths); err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close archive: %w", err)
	}

	final, err := m.reserveArchiveName(dir)
	if err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(final)
		return "", 0, fmt.Errorf("failed to rename archive: %w", err)
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.WarnWithFields("failed to remove archived snapshot", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
	}

	m.logger.InfoWithFields("snapshots archived", map[string]interface{}{
		"archive": final,
		"files":   len(paths),
	})
	return final, len(paths), nil
}

// reserveArchiveName claims a unique archive file name.
func (m *Manager) reserveArchiveName(dir string) (string, error) {
	base := fmt.Sprintf("%d", m.now().Unix())
	for i := 0; i < maxSuffix; i++ {
		name := base + archiveSuffix
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, archiveSuffix)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create archive: %w", err)
		}
		f.Close()
		return path, nil
	}
	return "", fmt.Errorf("failed to create archive %s: too many collisions", base)
}

func writeArchive(w io.Writer, paths []string) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(enc)

	for _, p := range paths {
		if err := addFile(tw, p); err != nil {
			enc.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header: %w", err)
	}
	hdr.Name = filepath.Base(path)

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", hdr.Name, err)
	}
	return nil
}

// ListArchive returns the entry names and sizes of an archive
func ListArchive(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer dec.Close()

	entries := make(map[string]int64)
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		entries[hdr.Name] = hdr.Size
	}
}

// Archives lists archive files, oldest first
func (m *Manager) Archives() ([]string, error) {
	entries, err := os.ReadDir(m.ArchiveDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), archiveSuffix) {
			paths = append(paths, filepath.Join(m.ArchiveDir(), e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func sanitizeKind(kind string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(kind))
}
