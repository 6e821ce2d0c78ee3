package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedforward/feedforward/pkg/cookie"
)

func TestManager_SetGetDelete(t *testing.T) {
	t.Parallel()

	t.Run("set applies secure defaults", func(t *testing.T) {
		t.Parallel()

		m := cookie.New(cookie.WithSecure(true))
		rec := httptest.NewRecorder()
		m.Set(rec, "token", "abc", cookie.WithMaxAge(3600))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, "token", c.Name)
		assert.Equal(t, "abc", c.Value)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, 3600, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	})

	t.Run("get reads request cookie", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: "abc"})

		value, err := m.Get(r, "token")
		require.NoError(t, err)
		assert.Equal(t, "abc", value)
	})

	t.Run("get missing cookie", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := m.Get(r, "token")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("delete expires the cookie", func(t *testing.T) {
		t.Parallel()

		m := cookie.New()
		rec := httptest.NewRecorder()
		m.Delete(rec, "token")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
		assert.Empty(t, cookies[0].Value)
	})
}
