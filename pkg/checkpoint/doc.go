// Package checkpoint persists the summary of the last run per account.
//
// Records live under the platform data directory:
//   - Linux: $XDG_DATA_HOME/igstories/runs/ (default ~/.local/share)
//   - macOS: ~/Library/Application Support/igstories/runs/
//   - Windows: %LOCALAPPDATA%/igstories/runs/
//
// Each save goes through a synced temp file and a rename, so a reader
// sees the old record or the new one. The replaced record stays
// available through LoadPrevious.
package checkpoint
