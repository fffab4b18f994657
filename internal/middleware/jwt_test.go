package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirei-app/kirei-api/internal/utils"
)

const testSecret = "unit-test-secret"

func doJWT(t *testing.T, target string, authHeader string) (*httptest.ResponseRecorder, Actor, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Actor
	var has bool
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		got, has = ActorFrom(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, got, has
}

func TestJWTAuthValidToken(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "CUSTOMER", "sess-7", 5)
	require.NoError(t, err)

	rec, actor, has := doJWT(t, "/", "Bearer "+at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, has)
	assert.Equal(t, uint64(7), actor.UserID)
	assert.Equal(t, "CUSTOMER", actor.Role)
	assert.Equal(t, "sess-7", actor.SessionID)
}

func TestJWTAuthQueryToken(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 9, "ADMIN", "sess-9", 5)
	require.NoError(t, err)

	rec, actor, has := doJWT(t, "/?access_token="+at.Token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, has)
	assert.Equal(t, uint64(9), actor.UserID)
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec, _, has := doJWT(t, "/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, has)
	assert.Contains(t, rec.Body.String(), "missing_token")
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("another-secret", 7, "CUSTOMER", "s", 5)
	require.NoError(t, err)

	rec, _, has := doJWT(t, "/", "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, has)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 7, "CUSTOMER", "s", -1)
	require.NoError(t, err)

	rec, _, has := doJWT(t, "/", "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, has)
}

func TestJWTAuthGarbageToken(t *testing.T) {
	rec, _, has := doJWT(t, "/", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, has)
}
