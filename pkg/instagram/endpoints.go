package instagram

import (
	"net/url"
	"strings"
)

const (
	// BaseURL is the private mobile API host
	BaseURL = "https://i.instagram.com"

	// ReelsTrayPath lists the story reels of followed users
	ReelsTrayPath = "/api/v1/feed/reels_tray/"

	userReelMediaPath = "/api/v1/feed/user/%s/reel_media/"
)

// ReelMediaPath returns the path of one user's reel media feed
func ReelMediaPath(userID string) string {
	return strings.Replace(userReelMediaPath, "%s", url.PathEscape(userID), 1)
}

// resolveURL joins a path or absolute URL with the base and query.
func resolveURL(base, path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	var u *url.URL
	if ref.IsAbs() {
		u = ref
	} else {
		b, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		u = b.ResolveReference(ref)
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
