package usecase

import (
	"context"
	"log/slog"
	"net/url"

	"authgate/internal/domain"
	"authgate/internal/infrastructure/cookie"
)

// ResolveRequest carries the per-request inputs to a session resolution.
type ResolveRequest struct {
	// AccessToken and RefreshToken are the raw credential cookie values,
	// empty when the cookie is absent.
	AccessToken  string
	RefreshToken string

	// RequestURI is the caller's own URI (path and query), captured as the
	// post-login destination when the policy does not name one.
	RequestURI string

	Policy domain.Policy
}

// Resolver turns the credential cookie pair into an authorization outcome.
// The provider client is injected at construction; a Resolver cannot exist
// without one.
type Resolver struct {
	provider  domain.ProviderClient
	loginPath string
	logger    *slog.Logger
}

// NewResolver creates a session resolver. loginPath is the local login
// handler path used as the redirect target on failure.
func NewResolver(provider domain.ProviderClient, loginPath string, l *slog.Logger) *Resolver {
	return &Resolver{provider: provider, loginPath: loginPath, logger: l}
}

// Resolve executes the session-resolution state machine:
//
//  1. A decodable access token authorizes immediately, with no cookie
//     mutation and no refresh attempt.
//  2. Without a refresh token, the request is denied ("not authenticated")
//     or redirected to login, per policy.
//  3. With a refresh token, a refresh exchange is attempted. Success
//     authorizes and carries fresh credentials for the gate to persist;
//     failure is handled as in step 2 with reason "session expired".
//
// Decode and refresh errors never escape: they only select the branch.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) domain.Outcome {
	if req.AccessToken != "" {
		claims, err := r.provider.DecodeAccess(ctx, req.AccessToken)
		if err == nil {
			return domain.Outcome{Status: domain.StatusAuthorized, Claims: claims}
		}
		r.logger.DebugContext(ctx, "access token invalid, attempting refresh", "error", err)
	}

	if req.RefreshToken == "" {
		return r.fail(req, domain.ErrNotAuthenticated.Error())
	}

	creds, err := r.provider.ExchangeRefresh(ctx, req.RefreshToken)
	if err != nil {
		r.logger.WarnContext(ctx, "refresh exchange failed", "error", err)
		return r.fail(req, domain.ErrSessionExpired.Error())
	}

	claims, err := r.provider.DecodeAccess(ctx, creds.AccessToken)
	if err != nil {
		r.logger.WarnContext(ctx, "refreshed access token failed verification", "error", err)
		return r.fail(req, domain.ErrSessionExpired.Error())
	}

	return domain.Outcome{
		Status: domain.StatusAuthorized,
		Claims: claims,
		Fresh:  creds,
	}
}

func (r *Resolver) fail(req ResolveRequest, reason string) domain.Outcome {
	if !req.Policy.RedirectOnFail {
		return domain.Outcome{Status: domain.StatusDenied, Reason: reason}
	}

	target := req.Policy.ReturnTo
	if target == "" {
		target = req.RequestURI
	}
	target = cookie.SanitizeReturnTo(target)

	return domain.Outcome{
		Status:   domain.StatusRedirect,
		LoginURL: r.loginPath + "?return_to=" + url.QueryEscape(target),
		ReturnTo: target,
	}
}
