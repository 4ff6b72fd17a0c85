package handler

import (
	"net/http"

	"authgate/internal/infrastructure/cookie"

	"github.com/labstack/echo/v4"
)

// LogoutHandler clears the credential cookies. The session is fully
// cookie-borne, so that is the whole logout.
type LogoutHandler struct {
	cookies *cookie.Store
}

// NewLogoutHandler creates a new logout handler.
func NewLogoutHandler(cs *cookie.Store) *LogoutHandler {
	return &LogoutHandler{cookies: cs}
}

// Handle processes the logout endpoint.
func (h *LogoutHandler) Handle(c echo.Context) error {
	for _, ck := range h.cookies.Clear() {
		c.SetCookie(ck)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
