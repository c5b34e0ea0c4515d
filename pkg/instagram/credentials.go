package instagram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultUserAgent identifies the client as the iOS app
const DefaultUserAgent = "Instagram 10.26.0 (iPhone7,2; iOS 10_1_1; en_US; en-US; scale=2.00; gamut=normal; 750x1334) AppleWebKit/420+"

// Credentials is the session bundle every request carries.
type Credentials struct {
	UserID    string
	SessionID string
	CSRFToken string
	DeviceID  string
}

// Validate checks that the cookie values are present and safe to send.
func (c Credentials) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"user id", c.UserID},
		{"session id", c.SessionID},
		{"csrf token", c.CSRFToken},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	for _, v := range []string{c.UserID, c.SessionID, c.CSRFToken, c.DeviceID} {
		if strings.ContainsAny(v, ";\r\n") {
			errs = append(errs, errors.New("credential values must not contain ';' or line breaks"))
			break
		}
	}
	return errors.Join(errs...)
}

// Cookie renders the bundle as a Cookie header value.
func (c Credentials) Cookie() string {
	return fmt.Sprintf("ds_user_id=%s; sessionid=%s; csrftoken=%s; mid=%s",
		c.UserID, c.SessionID, c.CSRFToken, c.DeviceID)
}

// Headers returns the fixed header set sent on every request.
func (c Credentials) Headers(userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h := make(http.Header)
	h.Set("Accept", "*/*")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Accept-Language", "en-US")
	h.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("DNT", "1")
	h.Set("Cookie", c.Cookie())
	h.Set("User-Agent", userAgent)
	h.Set("X-IG-Capabilities", "36oD")
	return h
}
