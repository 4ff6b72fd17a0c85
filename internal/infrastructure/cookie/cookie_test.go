package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"authgate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *Store {
	return NewStore("authgate_access_token", "authgate_refresh_token")
}

func TestStore_ReadAccess(t *testing.T) {
	s := newStore()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "authgate_access_token", Value: "token-abc"})

	assert.Equal(t, "token-abc", s.ReadAccess(req))
	assert.Empty(t, s.ReadRefresh(req))
}

func TestStore_Write(t *testing.T) {
	s := newStore()

	t.Run("both tokens present sets two cookies", func(t *testing.T) {
		cookies := s.Write(&domain.Credentials{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		})

		require.Len(t, cookies, 2)
		assert.Equal(t, "authgate_access_token", cookies[0].Name)
		assert.Equal(t, "access-1", cookies[0].Value)
		assert.Equal(t, "authgate_refresh_token", cookies[1].Name)
		assert.Equal(t, "refresh-1", cookies[1].Value)
	})

	t.Run("missing refresh token sets only access cookie", func(t *testing.T) {
		cookies := s.Write(&domain.Credentials{AccessToken: "access-2"})

		require.Len(t, cookies, 1)
		assert.Equal(t, "authgate_access_token", cookies[0].Name)
	})

	t.Run("empty credentials set nothing", func(t *testing.T) {
		assert.Empty(t, s.Write(&domain.Credentials{}))
		assert.Empty(t, s.Write(nil))
	})

	t.Run("security flags are fixed", func(t *testing.T) {
		cookies := s.Write(&domain.Credentials{AccessToken: "access-3"})

		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.Zero(t, c.MaxAge, "credential cookies are session cookies")
	})
}

func TestStore_Clear(t *testing.T) {
	s := newStore()

	cookies := s.Clear()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
	}
}

func TestStore_ReturnTo(t *testing.T) {
	s := newStore()

	t.Run("issue writes short-lived cookie", func(t *testing.T) {
		c := s.IssueReturnTo("/dashboard")

		assert.Equal(t, ReturnToCookieName, c.Name)
		assert.Equal(t, "/dashboard", c.Value)
		assert.Equal(t, 300, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	})

	t.Run("consume reads value and clears", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
		req.AddCookie(&http.Cookie{Name: ReturnToCookieName, Value: "/dashboard"})

		target, clear := s.ConsumeReturnTo(req)

		assert.Equal(t, "/dashboard", target)
		assert.Equal(t, ReturnToCookieName, clear.Name)
		assert.Equal(t, -1, clear.MaxAge)
	})

	t.Run("consume defaults to root when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)

		target, clear := s.ConsumeReturnTo(req)

		assert.Equal(t, "/", target)
		assert.NotNil(t, clear)
	})
}

func TestSanitizeReturnTo(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"relative path passes", "/dashboard", "/dashboard"},
		{"path with query passes", "/reports?year=2026", "/reports?year=2026"},
		{"empty collapses to root", "", "/"},
		{"absolute url collapses to root", "https://evil.example/phish", "/"},
		{"protocol-relative collapses to root", "//evil.example", "/"},
		{"backslash variant collapses to root", "/\\evil.example", "/"},
		{"no leading slash collapses to root", "dashboard", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeReturnTo(tt.target))
		})
	}
}
