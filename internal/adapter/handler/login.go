package handler

import (
	"log/slog"
	"net/http"

	"authgate/internal/domain"
	"authgate/internal/infrastructure/cookie"

	"github.com/labstack/echo/v4"
)

// LoginHandler starts the provider login round-trip: it stashes the caller's
// destination in the return-to cookie and redirects to the provider's
// authorization endpoint.
type LoginHandler struct {
	provider domain.ProviderClient
	cookies  *cookie.Store
	states   domain.StateCodec
	logger   *slog.Logger
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(p domain.ProviderClient, cs *cookie.Store, sc domain.StateCodec, l *slog.Logger) *LoginHandler {
	return &LoginHandler{provider: p, cookies: cs, states: sc, logger: l}
}

// Handle processes the login endpoint. The optional return_to query
// parameter names the post-login destination, defaulting to "/".
func (h *LoginHandler) Handle(c echo.Context) error {
	returnTo := cookie.SanitizeReturnTo(c.QueryParam("return_to"))

	state, err := h.states.Issue()
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "failed to issue state parameter", "error", err)
		status, detail := mapDomainError(err)
		return c.JSON(status, echo.Map{"detail": detail})
	}

	c.SetCookie(h.cookies.IssueReturnTo(returnTo))
	return c.Redirect(http.StatusTemporaryRedirect, h.provider.AuthorizationURL(state))
}
