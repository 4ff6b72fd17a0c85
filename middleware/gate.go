package middleware

import (
	"log/slog"
	"net/http"

	"authgate/internal/domain"
	"authgate/internal/infrastructure/cookie"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// claimsContextKey is where the gate stores resolved claims on the echo
// context.
const claimsContextKey = "authgate.claims"

// UpstreamTokenHeader carries the signed upstream JWT when a token issuer is
// configured.
const UpstreamTokenHeader = "X-Authgate-Token"

// GateConfig wires a Gate. Resolver, Cookies and Callback are required;
// Issuer is optional.
type GateConfig struct {
	Resolver *usecase.Resolver
	Cookies  *cookie.Store

	// Callback handles the provider redirect; the blanket middleware
	// delegates the callback path straight to it, bypassing the gate.
	Callback     echo.HandlerFunc
	CallbackPath string

	// SkipPaths are exempt from the blanket middleware (login, logout,
	// health and similar unauthenticated surfaces).
	SkipPaths []string

	// Issuer, when set, mints an upstream JWT for every admitted request.
	Issuer domain.TokenIssuer

	Logger *slog.Logger
}

// Gate renders session-resolution outcomes as HTTP. Both the per-route and
// the blanket front end resolve and apply outcomes through the same two
// functions, so they cannot drift apart.
type Gate struct {
	resolver     *usecase.Resolver
	cookies      *cookie.Store
	callback     echo.HandlerFunc
	callbackPath string
	skip         map[string]bool
	issuer       domain.TokenIssuer
	logger       *slog.Logger
}

// NewGate creates a gate from the given configuration.
func NewGate(cfg GateConfig) *Gate {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		resolver:     cfg.Resolver,
		cookies:      cfg.Cookies,
		callback:     cfg.Callback,
		callbackPath: cfg.CallbackPath,
		skip:         skip,
		issuer:       cfg.Issuer,
		logger:       logger,
	}
}

// ClaimsFrom returns the claims the gate attached to an admitted request,
// or nil when the request was not gated.
func ClaimsFrom(c echo.Context) domain.Claims {
	claims, _ := c.Get(claimsContextKey).(domain.Claims)
	return claims
}

// Require returns per-route middleware enforcing authentication under the
// given policy. Admitted requests carry claims retrievable via ClaimsFrom.
func (g *Gate) Require(policy domain.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			outcome := g.resolve(c, policy)
			if outcome.Status != domain.StatusAuthorized {
				return g.deny(c, outcome)
			}
			if err := g.admit(c, outcome); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Middleware returns the blanket variant: every request is gated except the
// callback path, which is delegated to the callback handler, and the
// configured skip paths.
func (g *Gate) Middleware(policy domain.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == g.callbackPath {
				return g.callback(c)
			}
			if g.skip[path] {
				return next(c)
			}

			outcome := g.resolve(c, policy)
			if outcome.Status != domain.StatusAuthorized {
				return g.deny(c, outcome)
			}
			if err := g.admit(c, outcome); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func (g *Gate) resolve(c echo.Context, policy domain.Policy) domain.Outcome {
	r := c.Request()
	return g.resolver.Resolve(r.Context(), usecase.ResolveRequest{
		AccessToken:  g.cookies.ReadAccess(r),
		RefreshToken: g.cookies.ReadRefresh(r),
		RequestURI:   r.RequestURI,
		Policy:       policy,
	})
}

// admit attaches claims and, when the resolution produced fresh credentials,
// writes them onto the outbound response. Cookie writes happen here, before
// the downstream handler can start the body, so they always land on the same
// response the handler produces.
func (g *Gate) admit(c echo.Context, outcome domain.Outcome) error {
	c.Set(claimsContextKey, outcome.Claims)

	if outcome.Fresh != nil {
		for _, ck := range g.cookies.Write(outcome.Fresh) {
			c.SetCookie(ck)
		}
	}

	if g.issuer != nil {
		token, err := g.issuer.IssueUpstreamToken(outcome.Claims)
		if err != nil {
			g.logger.ErrorContext(c.Request().Context(), "upstream token generation failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "token generation error")
		}
		c.Response().Header().Set(UpstreamTokenHeader, token)
	}
	return nil
}

func (g *Gate) deny(c echo.Context, outcome domain.Outcome) error {
	switch outcome.Status {
	case domain.StatusRedirect:
		return c.Redirect(http.StatusTemporaryRedirect, outcome.LoginURL)
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"detail": outcome.Reason})
	}
}
