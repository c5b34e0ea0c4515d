package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy the four cookies a session needs
// out of a logged-in browser.
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INSTAGRAM SESSION COOKIES")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Log in at https://www.instagram.com in your browser.")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "3. Application (Chrome) or Storage (Firefox) -> Cookies -> https://www.instagram.com")
	fmt.Fprintln(w, "4. Copy these values:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   ds_user_id   numeric id of your account")
	fmt.Fprintln(w, "   sessionid    long value containing %3A")
	fmt.Fprintln(w, "   csrftoken    32 characters")
	fmt.Fprintln(w, "   mid          optional, generated when left blank")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Copy only the value, without quotes or the trailing semicolon.")
	fmt.Fprintln(w, "The session cookie grants full access to the account. Keep it private.")
	fmt.Fprintln(w, rule)
}
