package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"igstories/pkg/logger"
	"igstories/pkg/scraper"
)

const recordVersion = 1

// RunRecord is the outcome of one run for one account
type RunRecord struct {
	Account  string          `json:"account"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Error    string          `json:"error,omitempty"`
	Summary  scraper.Summary `json:"summary"`
	Version  int             `json:"version"`
}

// NewRunRecord builds a record from a finished run; err is the error Run returned
func NewRunRecord(account string, summary scraper.Summary, err error) *RunRecord {
	record := &RunRecord{
		Account:  account,
		Started:  summary.Started,
		Finished: summary.Finished,
		Summary:  summary,
		Version:  recordVersion,
	}
	if err != nil {
		record.Error = err.Error()
	}
	return record
}

// Succeeded reports whether the run completed without a fatal error
func (r *RunRecord) Succeeded() bool {
	return r.Error == ""
}

// Manager keeps the latest run record of one account, plus the one before it
type Manager struct {
	path    string
	account string
	logger  logger.Logger
}

// NewManager creates a manager for account under dir/runs. An empty dir
// selects DataDir().
func NewManager(dir, account string, log logger.Logger) (*Manager, error) {
	if account == "" {
		return nil, errors.New("account is required")
	}
	if dir == "" {
		var err error
		if dir, err = DataDir(); err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	runsDir := filepath.Join(dir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	return &Manager{
		path:    filepath.Join(runsDir, fileName(account)+".json"),
		account: account,
		logger:  log,
	}, nil
}

// Path returns the file holding the latest record
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) previousPath() string {
	return strings.TrimSuffix(m.path, ".json") + ".prev.json"
}

// Save replaces the latest record atomically; the record it replaces is
// kept as the previous one.
func (m *Manager) Save(record *RunRecord) error {
	if record.Account == "" {
		record.Account = m.account
	}
	if record.Version == 0 {
		record.Version = recordVersion
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), "."+filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary run record: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write run record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync run record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close run record: %w", err)
	}

	if m.Exists() {
		if err := os.Rename(m.path, m.previousPath()); err != nil {
			m.logger.WithError(err).Warn("failed to keep previous run record")
		}
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace run record: %w", err)
	}

	m.logger.DebugWithFields("run record saved", map[string]interface{}{
		"account":    record.Account,
		"downloaded": record.Summary.Downloaded,
		"path":       m.path,
	})
	return nil
}

// Load returns the latest record, or nil when none was saved
func (m *Manager) Load() (*RunRecord, error) {
	return load(m.path)
}

// LoadPrevious returns the record before the latest one, or nil
func (m *Manager) LoadPrevious() (*RunRecord, error) {
	return load(m.previousPath())
}

func load(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode run record %s: %w", path, err)
	}
	if record.Version > recordVersion {
		return nil, fmt.Errorf("run record %s has unsupported version %d", path, record.Version)
	}
	return &record, nil
}

// Delete removes both records
func (m *Manager) Delete() error {
	for _, path := range []string{m.path, m.previousPath()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete run record: %w", err)
		}
	}
	m.logger.Debug("run records deleted")
	return nil
}

// Exists checks if a record has been saved
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// fileName maps an account label onto a safe file name
func fileName(account string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimLeft(account, "."))
}

// DataDir returns the platform data directory, creating it
func DataDir() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igstories")
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			return "", errors.New("LOCALAPPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igstories")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igstories")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igstories")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
