package handler

import (
	"errors"
	"net/http"

	"authgate/internal/domain"
)

// mapDomainError converts a domain error into an HTTP status and a
// client-safe detail string. Provider error text is logged, never echoed.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCodeMissing):
		return http.StatusBadRequest, domain.ErrCodeMissing.Error()

	case errors.Is(err, domain.ErrStateMismatch):
		return http.StatusBadRequest, "invalid state parameter"

	case errors.Is(err, domain.ErrExchangeFailed):
		return http.StatusBadRequest, "failed to exchange authorization code"

	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, domain.ErrNotAuthenticated.Error()

	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, domain.ErrSessionExpired.Error()

	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway, "identity provider unavailable"

	case errors.Is(err, domain.ErrRefreshDisabled),
		errors.Is(err, domain.ErrTokenGeneration),
		errors.Is(err, domain.ErrStateSecretMissing):
		return http.StatusInternalServerError, "internal configuration error"

	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded"

	default:
		return http.StatusInternalServerError, "internal error"
	}
}
