package domain

import "errors"

// Authentication errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
)

// Callback errors.
var (
	ErrCodeMissing    = errors.New("authorization code not found")
	ErrExchangeFailed = errors.New("code exchange failed")
	ErrStateMismatch  = errors.New("state parameter mismatch")
)

// Provider errors.
var (
	ErrRefreshDisabled     = errors.New("refresh tokens are disabled")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Token errors.
var (
	ErrTokenGeneration    = errors.New("token generation failed")
	ErrStateSecretMissing = errors.New("state secret not configured")
)

// Rate limiting errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)
