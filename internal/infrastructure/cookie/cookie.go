package cookie

import (
	"net/http"
	"strings"

	"authgate/internal/domain"
)

// ReturnToCookieName is the temporary cookie carrying the post-login
// destination across the provider round-trip.
const ReturnToCookieName = "authgate_return_to"

// returnToMaxAge bounds the login round-trip. Five minutes is plenty.
const returnToMaxAge = 300

// Store reads and writes the credential cookie pair. Cookie names are fixed
// at construction and do not change for the lifetime of the process.
// Implements no business logic.
type Store struct {
	accessName  string
	refreshName string
}

// NewStore creates a cookie store for the given cookie names.
func NewStore(accessName, refreshName string) *Store {
	return &Store{accessName: accessName, refreshName: refreshName}
}

// AccessName returns the configured access-token cookie name.
func (s *Store) AccessName() string { return s.accessName }

// RefreshName returns the configured refresh-token cookie name.
func (s *Store) RefreshName() string { return s.refreshName }

// ReadAccess returns the access-token cookie value, or "" if absent.
func (s *Store) ReadAccess(r *http.Request) string {
	return readCookie(r, s.accessName)
}

// ReadRefresh returns the refresh-token cookie value, or "" if absent.
func (s *Store) ReadRefresh(r *http.Request) string {
	return readCookie(r, s.refreshName)
}

// Write returns the Set-Cookie instructions for the given credentials.
// The access cookie is always set when non-empty; the refresh cookie only
// when the provider returned one. Session-lifetime cookies.
func (s *Store) Write(creds *domain.Credentials) []*http.Cookie {
	if creds.Empty() {
		return nil
	}
	var cookies []*http.Cookie
	if creds.AccessToken != "" {
		cookies = append(cookies, secureCookie(s.accessName, creds.AccessToken, 0))
	}
	if creds.RefreshToken != "" {
		cookies = append(cookies, secureCookie(s.refreshName, creds.RefreshToken, 0))
	}
	return cookies
}

// Clear returns expired cookies for both credential names.
func (s *Store) Clear() []*http.Cookie {
	return []*http.Cookie{
		expiredCookie(s.accessName),
		expiredCookie(s.refreshName),
	}
}

// IssueReturnTo returns a short-lived cookie stashing the post-login
// destination. The target is sanitized before it is stored.
func (s *Store) IssueReturnTo(target string) *http.Cookie {
	return secureCookie(ReturnToCookieName, SanitizeReturnTo(target), returnToMaxAge)
}

// ConsumeReturnTo reads the stored destination (default "/") and returns the
// clear instruction for the cookie. The clear must be applied on every
// callback response, success or failure.
func (s *Store) ConsumeReturnTo(r *http.Request) (string, *http.Cookie) {
	target := readCookie(r, ReturnToCookieName)
	return SanitizeReturnTo(target), expiredCookie(ReturnToCookieName)
}

// SanitizeReturnTo restricts a return-to target to a same-origin relative
// path. Anything carrying a scheme, host, or protocol-relative prefix
// collapses to "/" to keep the login redirect from becoming an open
// redirect.
func SanitizeReturnTo(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return "/"
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func secureCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
