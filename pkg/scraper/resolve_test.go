package scraper

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igstories/pkg/errors"
	"igstories/pkg/instagram"
	"igstories/pkg/media"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func tsPtr(ts int64) *instagram.Timestamp {
	t := instagram.Timestamp(ts)
	return &t
}

func user(pk, name string) *instagram.User {
	id := instagram.ID(pk)
	return &instagram.User{PK: &id, Username: &name}
}

func imageItem(id string, renditions ...media.Rendition) instagram.StoryItem {
	return instagram.StoryItem{
		ID:             strPtr(id),
		User:           user("101", "alice"),
		TakenAt:        tsPtr(1500000000),
		MediaType:      intPtr(int(media.KindImage)),
		ImageVersions2: &instagram.ImageVersions{Candidates: renditions},
	}
}

func TestResolveItem(t *testing.T) {
	root := filepath.Join("data", "root")

	video := imageItem("v1")
	video.MediaType = intPtr(int(media.KindVideo))
	video.ImageVersions2 = nil
	video.VideoVersions = []media.Rendition{{Width: 480, Height: 854, URL: "small"}, {Width: 720, Height: 1280, URL: "big"}}

	noUser := imageItem("p2", media.Rendition{Width: 1, Height: 1, URL: "u"})
	noUser.User = nil

	noUsername := imageItem("p3", media.Rendition{Width: 1, Height: 1, URL: "u"})
	noUsername.User = &instagram.User{PK: user("1", "x").PK}

	noID := imageItem("", media.Rendition{Width: 1, Height: 1, URL: "u"})
	noID.ID = nil

	noTakenAt := imageItem("p4", media.Rendition{Width: 1, Height: 1, URL: "u"})
	noTakenAt.TakenAt = nil

	noType := imageItem("p5", media.Rendition{Width: 1, Height: 1, URL: "u"})
	noType.MediaType = nil

	noImageVersions := imageItem("p6")
	noImageVersions.ImageVersions2 = nil

	emptyVideo := imageItem("p7")
	emptyVideo.MediaType = intPtr(int(media.KindVideo))

	liveType := imageItem("p8", media.Rendition{Width: 1, Height: 1, URL: "u"})
	liveType.MediaType = intPtr(int(media.KindLive))

	unknownType := imageItem("p9", media.Rendition{Width: 1, Height: 1, URL: "u"})
	unknownType.MediaType = intPtr(8)

	noURL := imageItem("p10", media.Rendition{Width: 5, Height: 5})

	tests := []struct {
		name    string
		item    instagram.StoryItem
		outcome Outcome
		url     string
		kind    media.Kind
	}{
		{"image picks largest", imageItem("p1", media.Rendition{Width: 100, Height: 100, URL: "a"}, media.Rendition{Width: 1080, Height: 1920, URL: "b"}), Resolved, "b", media.KindImage},
		{"image tie keeps first", imageItem("p1", media.Rendition{Width: 800, Height: 800, URL: "a"}, media.Rendition{Width: 1000, Height: 600, URL: "b"}, media.Rendition{Width: 1000, Height: 600, URL: "c"}), Resolved, "b", media.KindImage},
		{"video", video, Resolved, "big", media.KindVideo},
		{"missing user", noUser, SkippedMalformed, "", 0},
		{"missing username", noUsername, SkippedMalformed, "", 0},
		{"missing id", noID, SkippedMalformed, "", 0},
		{"missing taken_at", noTakenAt, SkippedMalformed, "", 0},
		{"missing media_type", noType, SkippedMalformed, "", 0},
		{"missing image_versions2", noImageVersions, SkippedMalformed, "", 0},
		{"empty candidates", imageItem("p11"), SkippedNoMedia, "", media.KindImage},
		{"empty video_versions", emptyVideo, SkippedNoMedia, "", media.KindVideo},
		{"live media type", liveType, SkippedNoMedia, "", media.KindLive},
		{"unknown media type", unknownType, SkippedNoMedia, "", media.Kind(8)},
		{"rendition without url", noURL, SkippedNoMedia, "", media.KindImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveItem(root, tt.item)
			assert.Equal(t, tt.outcome, res.Outcome)

			if tt.outcome != Resolved {
				assert.Error(t, res.Err)
				assert.Empty(t, res.Target.Path)
				return
			}

			require.NoError(t, res.Err)
			assert.Equal(t, tt.url, res.Target.URL)
			assert.Equal(t, tt.kind, res.Target.Kind)
			assert.Equal(t, media.FormatPath(root, "alice", "101", 1500000000, *tt.item.ID, tt.kind), res.Target.Path)
		})
	}
}

func TestResolveItemEmptySetNamesField(t *testing.T) {
	res := ResolveItem(".", imageItem("p1"))

	var empty *errs.EmptySetError
	require.True(t, errors.As(res.Err, &empty))
	assert.Equal(t, "image_versions2.candidates", empty.Field)
}

const twoURLManifest = `<?xml version="1.0"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011">
  <Period>
    <AdaptationSet mimeType="video/mp4">
      <Representation id="v"><BaseURL>https://cdn.test/v.mp4</BaseURL></Representation>
    </AdaptationSet>
    <AdaptationSet mimeType="audio/mp4">
      <Representation id="a"><BaseURL>https://cdn.test/a.mp4</BaseURL></Representation>
    </AdaptationSet>
  </Period>
</MPD>`

func broadcast(mediaID, manifest string) instagram.Broadcast {
	return instagram.Broadcast{
		MediaID:       strPtr(mediaID),
		PublishedTime: tsPtr(1600000000),
		DashManifest:  strPtr(manifest),
	}
}

func TestResolveBroadcast(t *testing.T) {
	res := ResolveBroadcast("r", user("5", "eve"), broadcast("m1", twoURLManifest))
	require.Len(t, res, 2)

	for i, want := range []string{"https://cdn.test/v.mp4", "https://cdn.test/a.mp4"} {
		assert.Equal(t, Resolved, res[i].Outcome)
		assert.Equal(t, want, res[i].Target.URL)
		assert.Equal(t, media.KindLive, res[i].Target.Kind)
		assert.Equal(t, media.LivePostID("m1", i), res[i].Target.PostID)
		assert.Equal(t, media.FormatPath("r", "eve", "5", 1600000000, media.LivePostID("m1", i), media.KindLive), res[i].Target.Path)
	}
	assert.NotEqual(t, res[0].Target.Path, res[1].Target.Path)
}

func TestResolveBroadcastSkips(t *testing.T) {
	missingManifest := broadcast("m1", "")
	missingManifest.DashManifest = nil

	missingTime := broadcast("m1", twoURLManifest)
	missingTime.PublishedTime = nil

	tests := []struct {
		name    string
		user    *instagram.User
		b       instagram.Broadcast
		outcome Outcome
	}{
		{"no user", nil, broadcast("m1", twoURLManifest), SkippedMalformed},
		{"no media id", user("5", "eve"), broadcast("", twoURLManifest), SkippedMalformed},
		{"no published time", user("5", "eve"), missingTime, SkippedMalformed},
		{"no manifest", user("5", "eve"), missingManifest, SkippedMalformed},
		{"broken manifest", user("5", "eve"), broadcast("m1", "<MPD><BaseURL>x</MPD>"), SkippedMalformed},
		{"no base urls", user("5", "eve"), broadcast("m1", "<MPD/>"), SkippedNoMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveBroadcast("r", tt.user, tt.b)
			require.Len(t, res, 1)
			assert.Equal(t, tt.outcome, res[0].Outcome)
			assert.Error(t, res[0].Err)
		})
	}
}

func TestResolveBroadcastParseErrorType(t *testing.T) {
	res := ResolveBroadcast("r", user("5", "eve"), broadcast("m1", "not xml at all"))
	require.Len(t, res, 1)

	var parseErr *errs.ManifestParseError
	assert.ErrorAs(t, res[0].Err, &parseErr)
}

func TestResolveBroadcastEmptyBaseURL(t *testing.T) {
	res := ResolveBroadcast("r", user("5", "eve"), broadcast("m1", "<MPD><BaseURL></BaseURL><BaseURL>u</BaseURL></MPD>"))
	require.Len(t, res, 2)
	assert.Equal(t, SkippedNoMedia, res[0].Outcome)
	assert.Equal(t, Resolved, res[1].Outcome)
	assert.Equal(t, "m1_1", res[1].Target.PostID)
}

func TestResolveRejectsUnsafePathComponents(t *testing.T) {
	item := imageItem("p1", media.Rendition{Width: 1, Height: 1, URL: "u"})
	item.User = user("101", "../../etc")
	assert.Equal(t, SkippedMalformed, ResolveItem("r", item).Outcome)

	item = imageItem("..", media.Rendition{Width: 1, Height: 1, URL: "u"})
	assert.Equal(t, SkippedMalformed, ResolveItem("r", item).Outcome)

	res := ResolveBroadcast("r", user("5", "eve"), broadcast(`a\b`, twoURLManifest))
	require.Len(t, res, 1)
	assert.Equal(t, SkippedMalformed, res[0].Outcome)
}
