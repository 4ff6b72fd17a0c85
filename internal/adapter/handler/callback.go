package handler

import (
	"log/slog"
	"net/http"

	"authgate/internal/domain"
	"authgate/internal/infrastructure/cookie"

	"github.com/labstack/echo/v4"
)

// CallbackHandler completes the login round-trip: it exchanges the
// authorization code for credentials, sets them as cookies and redirects to
// the stored return-to destination.
type CallbackHandler struct {
	provider domain.ProviderClient
	cookies  *cookie.Store
	states   domain.StateCodec
	logger   *slog.Logger
}

// NewCallbackHandler creates a new callback handler.
func NewCallbackHandler(p domain.ProviderClient, cs *cookie.Store, sc domain.StateCodec, l *slog.Logger) *CallbackHandler {
	return &CallbackHandler{provider: p, cookies: cs, states: sc, logger: l}
}

// Handle processes the callback endpoint. A missing code is rejected without
// touching any cookie; once an exchange is attempted the return-to cookie is
// cleared on every path, so it can never outlive the round-trip. On success
// the credential cookies, the return-to clear and the redirect all land on
// the one response.
func (h *CallbackHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	code := c.QueryParam("code")
	if code == "" {
		status, detail := mapDomainError(domain.ErrCodeMissing)
		return c.JSON(status, echo.Map{"detail": detail})
	}

	target, clearReturnTo := h.cookies.ConsumeReturnTo(c.Request())

	if err := h.states.Verify(c.QueryParam("state")); err != nil {
		h.logger.WarnContext(ctx, "state verification failed", "error", err)
		c.SetCookie(clearReturnTo)
		status, detail := mapDomainError(err)
		return c.JSON(status, echo.Map{"detail": detail})
	}

	creds, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.ErrorContext(ctx, "code exchange failed", "error", err)
		c.SetCookie(clearReturnTo)
		status, detail := mapDomainError(err)
		return c.JSON(status, echo.Map{"detail": detail})
	}

	for _, ck := range h.cookies.Write(creds) {
		c.SetCookie(ck)
	}
	c.SetCookie(clearReturnTo)
	return c.Redirect(http.StatusTemporaryRedirect, target)
}
