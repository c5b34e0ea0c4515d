package scraper

import (
	"errors"
	"fmt"
	"strings"

	errs "igstories/pkg/errors"
	"igstories/pkg/instagram"
	"igstories/pkg/media"
)

// Outcome classifies a single story item or manifest entry
type Outcome int

const (
	// Resolved entries have a download URL and destination
	Resolved Outcome = iota
	// SkippedMalformed entries lack a required field
	SkippedMalformed
	// SkippedNoMedia entries are well formed but carry nothing to download
	SkippedNoMedia
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case SkippedMalformed:
		return "skipped_malformed"
	case SkippedNoMedia:
		return "skipped_no_media"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Target is where one media file comes from and goes to
type Target struct {
	URL      string
	Path     string
	UserID   string
	Username string
	PostID   string
	Kind     media.Kind
}

// Resolution is the result of resolving one entry. Err explains a skip.
type Resolution struct {
	Outcome Outcome
	Target  Target
	Err     error
}

func malformed(postID, format string, args ...interface{}) Resolution {
	return Resolution{
		Outcome: SkippedMalformed,
		Target:  Target{PostID: postID},
		Err:     fmt.Errorf(format, args...),
	}
}

func noMedia(target Target, err error) Resolution {
	return Resolution{Outcome: SkippedNoMedia, Target: target, Err: err}
}

// ResolveItem picks the best rendition of a story item and computes its
// destination under root. It never panics on missing fields.
func ResolveItem(root string, item instagram.StoryItem) Resolution {
	postID := ""
	if item.ID != nil {
		postID = *item.ID
	}
	if item.DecodeErr != nil {
		return malformed(postID, "undecodable item: %v", item.DecodeErr)
	}

	username, userID, ok := item.User.Identity()
	if !ok {
		return malformed(postID, "missing user")
	}
	if postID == "" {
		return malformed(postID, "missing id")
	}
	if item.TakenAt == nil {
		return malformed(postID, "missing taken_at")
	}
	if item.MediaType == nil {
		return malformed(postID, "missing media_type")
	}
	if err := checkComponents(username, userID, postID); err != nil {
		return malformed(postID, "%v", err)
	}

	kind := media.Kind(*item.MediaType)
	target := Target{
		UserID:   userID,
		Username: username,
		PostID:   postID,
		Kind:     kind,
	}

	var renditions []media.Rendition
	field := ""
	switch kind {
	case media.KindVideo:
		renditions, field = item.VideoVersions, "video_versions"
	case media.KindImage:
		if item.ImageVersions2 == nil {
			return malformed(postID, "missing image_versions2")
		}
		renditions, field = item.ImageVersions2.Candidates, "image_versions2.candidates"
	default:
		return noMedia(target, fmt.Errorf("no downloadable media for media type %s", kind))
	}

	url, err := media.SelectBest(renditions)
	if err != nil {
		var empty *errs.EmptySetError
		if errors.As(err, &empty) {
			empty.Field = field
		}
		return noMedia(target, err)
	}
	if url == "" {
		return noMedia(target, fmt.Errorf("%s: best rendition has no url", field))
	}

	target.URL = url
	target.Path = media.FormatPath(root, username, userID, int64(*item.TakenAt), postID, kind)
	return Resolution{Outcome: Resolved, Target: target}
}

// ResolveBroadcast resolves every BaseURL of a finished livestream. Each
// URL gets its own destination, keyed by its position in the manifest. A
// broadcast that cannot be read yields a single SkippedMalformed entry.
func ResolveBroadcast(root string, user *instagram.User, b instagram.Broadcast) []Resolution {
	mediaID := ""
	if b.MediaID != nil {
		mediaID = *b.MediaID
	}
	if b.DecodeErr != nil {
		return []Resolution{malformed(mediaID, "undecodable broadcast: %v", b.DecodeErr)}
	}

	username, userID, ok := user.Identity()
	if !ok {
		return []Resolution{malformed(mediaID, "missing user")}
	}
	if mediaID == "" {
		return []Resolution{malformed(mediaID, "missing media_id")}
	}
	if b.PublishedTime == nil {
		return []Resolution{malformed(mediaID, "missing published_time")}
	}
	if b.DashManifest == nil {
		return []Resolution{malformed(mediaID, "missing dash_manifest")}
	}
	if err := checkComponents(username, userID, mediaID); err != nil {
		return []Resolution{malformed(mediaID, "%v", err)}
	}

	urls, err := media.ExtractBaseURLs(*b.DashManifest)
	if err != nil {
		return []Resolution{{
			Outcome: SkippedMalformed,
			Target:  Target{UserID: userID, Username: username, PostID: mediaID, Kind: media.KindLive},
			Err:     err,
		}}
	}
	if len(urls) == 0 {
		return []Resolution{noMedia(
			Target{UserID: userID, Username: username, PostID: mediaID, Kind: media.KindLive},
			&errs.EmptySetError{Field: "BaseURL"},
		)}
	}

	resolutions := make([]Resolution, 0, len(urls))
	for i, url := range urls {
		postID := media.LivePostID(mediaID, i)
		target := Target{
			UserID:   userID,
			Username: username,
			PostID:   postID,
			Kind:     media.KindLive,
		}
		if url == "" {
			resolutions = append(resolutions, noMedia(target, fmt.Errorf("empty BaseURL at index %d", i)))
			continue
		}
		target.URL = url
		target.Path = media.FormatPath(root, username, userID, int64(*b.PublishedTime), postID, media.KindLive)
		resolutions = append(resolutions, Resolution{Outcome: Resolved, Target: target})
	}
	return resolutions
}

// checkComponents rejects values that would step outside their directory
// once joined into a path.
func checkComponents(values ...string) error {
	for _, v := range values {
		if v == "." || v == ".." || strings.ContainsAny(v, "/\\\x00") {
			return fmt.Errorf("unsafe path component %q", v)
		}
	}
	return nil
}
