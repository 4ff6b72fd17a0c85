package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"authgate/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// Options configures an OIDC provider client. ClientID, ClientSecret and
// AppURL are required for every family; TenantID only for Entra ID, BaseURL
// and Realm only for Keycloak.
type Options struct {
	ClientID     string
	ClientSecret string

	// AppURL is the public base URL of this application. The provider
	// redirect URI is AppURL joined with CallbackPath.
	AppURL       string
	CallbackPath string

	UseRefreshToken bool

	TenantID string // Entra ID
	BaseURL  string // Keycloak
	Realm    string // Keycloak
}

func (o Options) redirectURL() string {
	return strings.TrimRight(o.AppURL, "/") + o.CallbackPath
}

// OIDCProvider implements domain.ProviderClient on top of standard OIDC
// discovery. ID tokens are the access credential: they are verified locally
// against the provider's JWKS (cached by the verifier) and their claims are
// the identity attributes handed to the caller.
type OIDCProvider struct {
	oauth2Cfg       oauth2.Config
	verifier        *oidc.IDTokenVerifier
	httpClient      *http.Client
	useRefreshToken bool
	authCodeOpts    []oauth2.AuthCodeOption
}

// NewGoogle creates a provider client for Google.
func NewGoogle(ctx context.Context, opts Options) (*OIDCProvider, error) {
	var extra []oauth2.AuthCodeOption
	if opts.UseRefreshToken {
		// Google only hands out refresh tokens for offline, consented flows.
		extra = append(extra, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return newProvider(ctx, googleIssuer, opts, extra...)
}

// NewEntraID creates a provider client for a Microsoft Entra ID tenant.
func NewEntraID(ctx context.Context, opts Options) (*OIDCProvider, error) {
	if opts.TenantID == "" {
		return nil, fmt.Errorf("entra id: tenant ID cannot be empty")
	}
	issuer := fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", opts.TenantID)
	return newProvider(ctx, issuer, opts)
}

// NewKeycloak creates a provider client for a Keycloak realm.
func NewKeycloak(ctx context.Context, opts Options) (*OIDCProvider, error) {
	if opts.BaseURL == "" || opts.Realm == "" {
		return nil, fmt.Errorf("keycloak: base URL and realm cannot be empty")
	}
	issuer := strings.TrimRight(opts.BaseURL, "/") + "/realms/" + opts.Realm
	return newProvider(ctx, issuer, opts)
}

// newProvider runs OIDC discovery against the issuer and builds the client.
func newProvider(ctx context.Context, issuer string, opts Options, extra ...oauth2.AuthCodeOption) (*OIDCProvider, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("oidc: client ID and secret cannot be empty")
	}
	if opts.AppURL == "" {
		return nil, fmt.Errorf("oidc: app URL cannot be empty")
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: discovery for %s: %w", domain.ErrProviderUnavailable, issuer, err)
	}

	return &OIDCProvider{
		oauth2Cfg: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.redirectURL(),
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier:        provider.Verifier(&oidc.Config{ClientID: opts.ClientID}),
		httpClient:      httpClient,
		useRefreshToken: opts.UseRefreshToken,
		authCodeOpts:    extra,
	}, nil
}

// AuthorizationURL returns the provider's authorization endpoint URL carrying
// the given state parameter.
func (p *OIDCProvider) AuthorizationURL(state string) string {
	return p.oauth2Cfg.AuthCodeURL(state, p.authCodeOpts...)
}

// ExchangeCode trades an authorization code for verified credentials.
func (p *OIDCProvider) ExchangeCode(ctx context.Context, code string) (*domain.Credentials, error) {
	token, err := p.oauth2Cfg.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExchangeFailed, err)
	}

	rawID, err := p.verifiedIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExchangeFailed, err)
	}

	creds := &domain.Credentials{AccessToken: rawID}
	if p.useRefreshToken {
		creds.RefreshToken = token.RefreshToken
	}
	return creds, nil
}

// DecodeAccess verifies the access credential locally and returns its claims.
// No network call is made once the verifier's key set is warm.
func (p *OIDCProvider) DecodeAccess(ctx context.Context, accessToken string) (domain.Claims, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(accessToken, "Bearer"))

	idToken, err := p.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), raw)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}

	var claims domain.Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	return claims, nil
}

// ExchangeRefresh trades a refresh token for fresh verified credentials. When
// the provider does not rotate the refresh token, the old one is kept so the
// caller can re-set it as a cookie.
func (p *OIDCProvider) ExchangeRefresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	if !p.useRefreshToken {
		return nil, domain.ErrRefreshDisabled
	}

	token, err := p.oauth2Cfg.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh exchange: %w", err)
	}

	rawID, err := p.verifiedIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("refresh exchange: %w", err)
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	return &domain.Credentials{AccessToken: rawID, RefreshToken: newRefresh}, nil
}

// verifiedIDToken extracts the id_token from a token response and verifies
// it before it is ever handed out as a credential.
func (p *OIDCProvider) verifiedIDToken(ctx context.Context, token *oauth2.Token) (string, error) {
	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return "", fmt.Errorf("no id_token in token response")
	}
	if _, err := p.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), rawID); err != nil {
		return "", fmt.Errorf("verify id_token: %w", err)
	}
	return rawID, nil
}

func (p *OIDCProvider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
