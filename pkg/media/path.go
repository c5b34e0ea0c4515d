package media

import (
	"path/filepath"
	"strconv"
	"time"
)

// Kind is the media type code used by the API.
type Kind int

const (
	KindImage Kind = 1
	KindVideo Kind = 2
	KindLive  Kind = 3
)

const (
	CategoryStories     = "stories"
	CategoryLiveStories = "livestories"
	CategoryOther       = "other"
)

// timestampLayout renders UTC time as YYYY-MM-DD-HH-MM-SS.
const timestampLayout = "2006-01-02-15-04-05"

// Layout returns the file extension and category directory for the kind.
func (k Kind) Layout() (ext, category string) {
	switch k {
	case KindImage:
		return ".jpg", CategoryStories
	case KindVideo:
		return ".mp4", CategoryStories
	case KindLive:
		return ".mp4", CategoryLiveStories
	default:
		return "", CategoryOther
	}
}

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindLive:
		return "live"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// FormatPath maps an item to
// <root>/downloads/<username>_<userID>/<category>/<utc>_<timestamp>_<postID><ext>.
// The formatted time is only for reading; the raw timestamp and post id
// keep the name unique.
func FormatPath(root, username, userID string, timestamp int64, postID string, kind Kind) string {
	ext, category := kind.Layout()
	stamp := time.Unix(timestamp, 0).UTC().Format(timestampLayout)
	name := stamp + "_" + strconv.FormatInt(timestamp, 10) + "_" + postID + ext
	return filepath.Join(root, "downloads", username+"_"+userID, category, name)
}

// LivePostID derives the post id of one base URL of a broadcast.
func LivePostID(mediaID string, index int) string {
	return mediaID + "_" + strconv.Itoa(index)
}
