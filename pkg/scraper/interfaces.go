package scraper

import (
	"context"
	"io"

	"igstories/internal/downloader"
	"igstories/pkg/instagram"
)

// InstagramClient defines the API operations a run needs
type InstagramClient interface {
	FetchReelsTray(ctx context.Context) (*instagram.Tray, []byte, error)
	FetchReelMedia(ctx context.Context, userID string) (*instagram.Reel, []byte, error)
	GetStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// SnapshotStore keeps raw API responses
type SnapshotStore interface {
	SaveSnapshot(kind string, body []byte) (string, error)
	Archive() (string, int, error)
}

// Observer is told about every queued and finished download. Calls may
// come from several goroutines.
type Observer interface {
	Queued(job downloader.DownloadJob)
	Finished(result downloader.DownloadResult)
}
