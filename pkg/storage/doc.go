// Package storage keeps the raw API responses of each run.
//
// Every tray and reel response is written once as <unix>_<kind>.json and
// never overwritten. At the end of a run the loose files are bundled into
// archive/<unix>_snapshots.tar.zst and deleted, only after the archive has
// been fully written and synced.
//
//	manager, err := storage.NewManager(filepath.Join(root, "json"), log)
//	if err != nil {
//	    return err
//	}
//	manager.SaveSnapshot("tray", body)
//	archive, n, err := manager.Archive()
package storage
