package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"igstories/pkg/media"
)

// ID is an identifier the API sends either as a JSON number or a string.
type ID string

// UnmarshalJSON accepts 123, "123" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp is a unix time in seconds, tolerating float and string encodings.
type Timestamp int64

// UnmarshalJSON accepts 1500000000, 1500000000.0 and "1500000000".
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*ts = Timestamp(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", data)
	}
	*ts = Timestamp(int64(f))
	return nil
}

// Every field the API may omit is a pointer or slice so absence stays
// observable; nothing here is trusted to be present. Lists are decoded one
// element at a time: an element that does not fit its type is kept with
// DecodeErr set instead of failing the whole response.

// User is the owner of a reel or item
type User struct {
	PK       *ID     `json:"pk,omitempty"`
	Username *string `json:"username,omitempty"`
}

// Identity returns the username and user id when both are present.
func (u *User) Identity() (username, userID string, ok bool) {
	if u == nil || u.Username == nil || u.PK == nil || *u.Username == "" || *u.PK == "" {
		return "", "", false
	}
	return *u.Username, u.PK.String(), true
}

// ImageVersions wraps the image candidate list
type ImageVersions struct {
	Candidates []media.Rendition `json:"candidates"`
}

// StoryItem is a single posted story
type StoryItem struct {
	ID             *string           `json:"id,omitempty"`
	User           *User             `json:"user,omitempty"`
	TakenAt        *Timestamp        `json:"taken_at,omitempty"`
	MediaType      *int              `json:"media_type,omitempty"`
	ImageVersions2 *ImageVersions    `json:"image_versions2,omitempty"`
	VideoVersions  []media.Rendition `json:"video_versions,omitempty"`

	DecodeErr error `json:"-"`
}

// StoryItems decodes each item independently
type StoryItems []StoryItem

func (items *StoryItems) UnmarshalJSON(data []byte) error {
	list, err := decodeList(data, func(raw json.RawMessage, err error) StoryItem {
		item := StoryItem{DecodeErr: err}
		if id := peekID(raw, "id"); id != "" {
			item.ID = &id
		}
		return item
	})
	*items = list
	return err
}

// Reel is one user's collection of story items
type Reel struct {
	ID       *ID        `json:"id,omitempty"`
	User     *User      `json:"user,omitempty"`
	Items    StoryItems `json:"items,omitempty"`
	PostLive *PostLive  `json:"post_live,omitempty"`

	DecodeErr error `json:"-"`
}

// Reels decodes each reel independently. A reel that fails still keeps
// its owner when that part is readable, so its reel can be fetched alone.
type Reels []Reel

func (reels *Reels) UnmarshalJSON(data []byte) error {
	list, err := decodeList(data, func(raw json.RawMessage, err error) Reel {
		return Reel{User: peekUser(raw), DecodeErr: err}
	})
	*reels = list
	return err
}

// Tray is the reels tray response
type Tray struct {
	Reels    Reels     `json:"tray"`
	PostLive *PostLive `json:"post_live,omitempty"`
	Status   string    `json:"status,omitempty"`
}

// UserIDs returns the owner id of each reel in tray order. Reels without
// an owner id are skipped.
func (t *Tray) UserIDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.Reels))
	for _, reel := range t.Reels {
		if reel.User != nil && reel.User.PK != nil && *reel.User.PK != "" {
			ids = append(ids, reel.User.PK.String())
		}
	}
	return ids
}

// PostLive holds finished livestreams that can be replayed. A post_live
// value of the wrong shape decodes with DecodeErr set.
type PostLive struct {
	Items PostLiveItems `json:"post_live_items"`

	DecodeErr error `json:"-"`
}

func (p *PostLive) UnmarshalJSON(data []byte) error {
	type plain PostLive
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = PostLive{DecodeErr: err}
		return nil
	}
	*p = PostLive(v)
	return nil
}

// PostLiveItem groups one user's replayable broadcasts
type PostLiveItem struct {
	User       *User      `json:"user,omitempty"`
	Broadcasts Broadcasts `json:"broadcasts"`

	DecodeErr error `json:"-"`
}

// PostLiveItems decodes each entry independently
type PostLiveItems []PostLiveItem

func (items *PostLiveItems) UnmarshalJSON(data []byte) error {
	list, err := decodeList(data, func(raw json.RawMessage, err error) PostLiveItem {
		return PostLiveItem{User: peekUser(raw), DecodeErr: err}
	})
	*items = list
	return err
}

// Broadcast is a finished livestream with its DASH manifest
type Broadcast struct {
	ID            *ID        `json:"id,omitempty"`
	MediaID       *string    `json:"media_id,omitempty"`
	PublishedTime *Timestamp `json:"published_time,omitempty"`
	DashManifest  *string    `json:"dash_manifest,omitempty"`

	DecodeErr error `json:"-"`
}

// Broadcasts decodes each broadcast independently
type Broadcasts []Broadcast

func (bs *Broadcasts) UnmarshalJSON(data []byte) error {
	list, err := decodeList(data, func(raw json.RawMessage, err error) Broadcast {
		b := Broadcast{DecodeErr: err}
		if id := peekID(raw, "media_id"); id != "" {
			b.MediaID = &id
		}
		return b
	})
	*bs = list
	return err
}

// decodeList decodes a JSON array element by element. Elements that fail
// are replaced by bad(raw, err). Only a value that is not an array at all
// is an error; null decodes to an empty list.
func decodeList[T any](data []byte, bad func(json.RawMessage, error) T) ([]T, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}

	list := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			list = append(list, bad(raw, err))
			continue
		}
		list = append(list, v)
	}
	return list, nil
}

// peekID reads key from an element that failed to decode, for logging.
func peekID(raw json.RawMessage, key string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	value, ok := fields[key]
	if !ok {
		return ""
	}
	var id ID
	if err := json.Unmarshal(value, &id); err != nil {
		return ""
	}
	return id.String()
}

// peekUser reads the user of an element that failed to decode.
func peekUser(raw json.RawMessage) *User {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	value, ok := fields["user"]
	if !ok {
		return nil
	}
	var user User
	if err := json.Unmarshal(value, &user); err != nil {
		return nil
	}
	return &user
}
