package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	errs "igstories/pkg/errors"
)

// Rendition is one available quality variant of a media item.
type Rendition struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// UnmarshalJSON accepts dimensions as integers, floats like 1080.0 or
// numeric strings. A missing or null dimension is zero.
func (r *Rendition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Width  json.RawMessage `json:"width"`
		Height json.RawMessage `json:"height"`
		URL    string          `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	width, err := parseDimension(raw.Width)
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	height, err := parseDimension(raw.Height)
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}

	*r = Rendition{Width: width, Height: height, URL: raw.URL}
	return nil
}

func parseDimension(data json.RawMessage) (int, error) {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("invalid dimension %q", data)
	}
	return int(f), nil
}

// Area returns width times height in pixels.
func (r Rendition) Area() int64 {
	return int64(r.Width) * int64(r.Height)
}

// SelectBest returns the URL of the rendition with the largest area.
// Candidates are scanned in order and an equal area never replaces the
// current pick, so the earliest of several maximal renditions wins.
func SelectBest(renditions []Rendition) (string, error) {
	if len(renditions) == 0 {
		return "", &errs.EmptySetError{Field: "renditions"}
	}

	best := 0
	for i := 1; i < len(renditions); i++ {
		if renditions[i].Area() > renditions[best].Area() {
			best = i
		}
	}
	return renditions[best].URL, nil
}
