package media

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindLayout(t *testing.T) {
	tests := []struct {
		kind     Kind
		ext      string
		category string
	}{
		{KindImage, ".jpg", "stories"},
		{KindVideo, ".mp4", "stories"},
		{KindLive, ".mp4", "livestories"},
		{Kind(0), "", "other"},
		{Kind(8), "", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			ext, category := tt.kind.Layout()
			assert.Equal(t, tt.ext, ext)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestFormatPath(t *testing.T) {
	got := FormatPath("/root", "alice", "42", 1500000000, "1111_42", KindImage)
	want := filepath.Join("/root", "downloads", "alice_42", "stories", "2017-07-14-02-40-00_1500000000_1111_42.jpg")
	assert.Equal(t, want, got)

	got = FormatPath("/root", "alice", "42", 1500000000, LivePostID("9", 1), KindLive)
	want = filepath.Join("/root", "downloads", "alice_42", "livestories", "2017-07-14-02-40-00_1500000000_9_1.mp4")
	assert.Equal(t, want, got)

	got = FormatPath("/root", "alice", "42", 0, "p", Kind(5))
	want = filepath.Join("/root", "downloads", "alice_42", "other", "1970-01-01-00-00-00_0_p")
	assert.Equal(t, want, got)
}

func TestFormatPathIsDeterministic(t *testing.T) {
	a := FormatPath("out", "bob", "7", 1600000000, "p1", KindVideo)
	b := FormatPath("out", "bob", "7", 1600000000, "p1", KindVideo)
	assert.Equal(t, a, b)
}

func TestFormatPathVariesWithEachInput(t *testing.T) {
	base := FormatPath("out", "bob", "7", 1600000000, "p1", KindImage)

	variants := map[string]string{
		"timestamp":  FormatPath("out", "bob", "7", 1600000001, "p1", KindImage),
		"post id":    FormatPath("out", "bob", "7", 1600000000, "p2", KindImage),
		"media kind": FormatPath("out", "bob", "7", 1600000000, "p1", KindVideo),
		"live kind":  FormatPath("out", "bob", "7", 1600000000, "p1", KindLive),
		"sub-index":  FormatPath("out", "bob", "7", 1600000000, LivePostID("p1", 0), KindImage),
	}

	seen := map[string]string{base: "base"}
	for name, p := range variants {
		assert.NotEqual(t, base, p, name)
		if other, dup := seen[p]; dup {
			t.Errorf("%s and %s produced the same path %s", name, other, p)
		}
		seen[p] = name
	}
}

func TestLivePostID(t *testing.T) {
	assert.Equal(t, "1790_0", LivePostID("1790", 0))
	assert.Equal(t, "1790_12", LivePostID("1790", 12))
}
