package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"authgate/internal/domain"
	"authgate/internal/infrastructure/cookie"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateProvider implements domain.ProviderClient for gate tests.
type gateProvider struct {
	claims       domain.Claims
	refreshCreds *domain.Credentials
	refreshErr   error
}

func (p *gateProvider) AuthorizationURL(state string) string { return "" }

func (p *gateProvider) ExchangeCode(context.Context, string) (*domain.Credentials, error) {
	panic("not used by the gate")
}

func (p *gateProvider) DecodeAccess(_ context.Context, accessToken string) (domain.Claims, error) {
	if accessToken == "valid-token" {
		return p.claims, nil
	}
	if p.refreshCreds != nil && accessToken == p.refreshCreds.AccessToken {
		return p.claims, nil
	}
	return nil, domain.ErrNotAuthenticated
}

func (p *gateProvider) ExchangeRefresh(context.Context, string) (*domain.Credentials, error) {
	return p.refreshCreds, p.refreshErr
}

// fixedIssuer implements domain.TokenIssuer.
type fixedIssuer struct {
	token string
	err   error
}

func (i *fixedIssuer) IssueUpstreamToken(domain.Claims) (string, error) { return i.token, i.err }

func newGate(p domain.ProviderClient, issuer domain.TokenIssuer, callback echo.HandlerFunc) *Gate {
	cookies := cookie.NewStore("authgate_access_token", "authgate_refresh_token")
	return NewGate(GateConfig{
		Resolver:     usecase.NewResolver(p, "/auth/login", slog.Default()),
		Cookies:      cookies,
		Callback:     callback,
		CallbackPath: "/auth/callback",
		SkipPaths:    []string{"/auth/login", "/auth/logout", "/health"},
		Issuer:       issuer,
		Logger:       slog.Default(),
	})
}

// run sends req through the given middleware in front of a probe handler.
func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, bool, domain.Claims) {
	t.Helper()

	var invoked bool
	var claims domain.Claims
	handler := mw(func(c echo.Context) error {
		invoked = true
		claims = ClaimsFrom(c)
		return c.String(http.StatusOK, "protected")
	})

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec, invoked, claims
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGateRequire(t *testing.T) {
	t.Run("valid access token admits without cookie writes", func(t *testing.T) {
		provider := &gateProvider{claims: domain.Claims{"sub": "user-123"}}
		g := newGate(provider, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.AddCookie(&http.Cookie{Name: "authgate_access_token", Value: "valid-token"})

		rec, invoked, claims := run(t, g.Require(domain.Policy{}), req)

		assert.True(t, invoked)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-123", claims.Subject())
		assert.Empty(t, rec.Result().Cookies(), "no cookie writes on a valid access token")
	})

	t.Run("refresh writes exactly the fresh cookie pair", func(t *testing.T) {
		provider := &gateProvider{
			claims:       domain.Claims{"sub": "user-123"},
			refreshCreds: &domain.Credentials{AccessToken: "new-access", RefreshToken: "new-refresh"},
		}
		g := newGate(provider, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.AddCookie(&http.Cookie{Name: "authgate_access_token", Value: "expired-token"})
		req.AddCookie(&http.Cookie{Name: "authgate_refresh_token", Value: "refresh-token"})

		rec, invoked, claims := run(t, g.Require(domain.Policy{}), req)

		assert.True(t, invoked)
		assert.Equal(t, "user-123", claims.Subject())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)
		access := cookieByName(rec, "authgate_access_token")
		require.NotNil(t, access)
		assert.Equal(t, "new-access", access.Value)
		refresh := cookieByName(rec, "authgate_refresh_token")
		require.NotNil(t, refresh)
		assert.Equal(t, "new-refresh", refresh.Value)
	})

	t.Run("no credentials denies with 401 JSON", func(t *testing.T) {
		g := newGate(&gateProvider{}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		rec, invoked, _ := run(t, g.Require(domain.Policy{}), req)

		assert.False(t, invoked, "downstream handler must not run")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail":"not authenticated"}`, rec.Body.String())
	})

	t.Run("redirect policy sends 307 to login with return-to", func(t *testing.T) {
		g := newGate(&gateProvider{}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports?year=2026", nil)
		rec, invoked, _ := run(t, g.Require(domain.Policy{RedirectOnFail: true}), req)

		assert.False(t, invoked)
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/auth/login?return_to=%2Freports%3Fyear%3D2026", rec.Header().Get("Location"))
	})

	t.Run("failed refresh denies with session expired", func(t *testing.T) {
		g := newGate(&gateProvider{refreshErr: domain.ErrProviderUnavailable}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.AddCookie(&http.Cookie{Name: "authgate_refresh_token", Value: "stale"})
		rec, invoked, _ := run(t, g.Require(domain.Policy{}), req)

		assert.False(t, invoked)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail":"session expired"}`, rec.Body.String())
	})

	t.Run("upstream token header set when issuer configured", func(t *testing.T) {
		provider := &gateProvider{claims: domain.Claims{"sub": "user-123"}}
		g := newGate(provider, &fixedIssuer{token: "signed-jwt"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.AddCookie(&http.Cookie{Name: "authgate_access_token", Value: "valid-token"})
		rec, invoked, _ := run(t, g.Require(domain.Policy{}), req)

		assert.True(t, invoked)
		assert.Equal(t, "signed-jwt", rec.Header().Get(UpstreamTokenHeader))
	})
}

func TestGateMiddleware(t *testing.T) {
	t.Run("callback path bypasses the gate entirely", func(t *testing.T) {
		var callbackHit bool
		callback := func(c echo.Context) error {
			callbackHit = true
			return c.NoContent(http.StatusOK)
		}
		g := newGate(&gateProvider{}, nil, callback)

		// No credentials at all: a gated path would be denied.
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=x", nil)
		rec, invoked, _ := run(t, g.Middleware(domain.Policy{}), req)

		assert.True(t, callbackHit)
		assert.False(t, invoked, "downstream handler is never the callback target")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("skip paths pass through ungated", func(t *testing.T) {
		g := newGate(&gateProvider{}, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec, invoked, claims := run(t, g.Middleware(domain.Policy{}), req)

		assert.True(t, invoked)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, claims)
	})

	t.Run("gated path denies like the per-route gate", func(t *testing.T) {
		g := newGate(&gateProvider{}, nil, func(c echo.Context) error { return nil })

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		rec, invoked, _ := run(t, g.Middleware(domain.Policy{}), req)

		assert.False(t, invoked)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail":"not authenticated"}`, rec.Body.String())
	})

	t.Run("authorized request reaches downstream with fresh cookies applied", func(t *testing.T) {
		provider := &gateProvider{
			claims:       domain.Claims{"sub": "user-123"},
			refreshCreds: &domain.Credentials{AccessToken: "new-access", RefreshToken: "new-refresh"},
		}
		g := newGate(provider, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		req.AddCookie(&http.Cookie{Name: "authgate_refresh_token", Value: "refresh-token"})
		rec, invoked, claims := run(t, g.Middleware(domain.Policy{}), req)

		assert.True(t, invoked)
		assert.Equal(t, "user-123", claims.Subject())
		assert.NotNil(t, cookieByName(rec, "authgate_access_token"))
		assert.NotNil(t, cookieByName(rec, "authgate_refresh_token"))
	})

	t.Run("both front ends agree on the same request", func(t *testing.T) {
		provider := &gateProvider{claims: domain.Claims{"sub": "user-123"}}
		g := newGate(provider, nil, nil)
		policy := domain.Policy{RedirectOnFail: true}

		for _, mw := range []echo.MiddlewareFunc{g.Require(policy), g.Middleware(policy)} {
			req := httptest.NewRequest(http.MethodGet, "/reports", nil)
			rec, invoked, _ := run(t, mw, req)

			assert.False(t, invoked)
			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, "/auth/login?return_to=%2Freports", rec.Header().Get("Location"))
		}
	})
}
