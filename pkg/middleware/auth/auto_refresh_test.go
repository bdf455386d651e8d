package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

type fakeRefresher struct {
	pair  tokens.Pair
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (tokens.Pair, error) {
	f.calls++
	return f.pair, f.err
}

func sign(t *testing.T, id uuid.UUID, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.SignAccessToken(id, role, exp, secret)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, tokens.Identity, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got tokens.Identity
	err := mw(func(c echo.Context) error {
		got, _ = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, err
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected *echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth_Cookie(t *testing.T) {
	uid := uuid.New()
	m := NewAutoRefreshMiddleware(secret, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: sign(t, uid, tokens.RoleUser, time.Now().Add(time.Minute))})

	_, id, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, tokens.Identity{UserID: uid}, id)
}

func TestRequireAuth_Bearer(t *testing.T) {
	uid := uuid.New()
	m := NewAutoRefreshMiddleware(secret, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, uid, tokens.RoleAdmin, time.Now().Add(time.Minute)))

	_, id, err := run(t, m.RequireAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, tokens.Identity{UserID: uid, IsAdmin: true}, id)
}

func TestRequireAuth_Missing(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)
	_, _, err := run(t, m.RequireAuth, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
}

func TestRequireAuth_Garbage(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")

	_, _, err := run(t, m.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
}

func TestRequireAdmin_ForbidsUser(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: sign(t, uuid.New(), tokens.RoleUser, time.Now().Add(time.Minute))})

	_, _, err := run(t, m.RequireAdmin, req)
	assert.Equal(t, http.StatusForbidden, httpCode(t, err))
}

func TestRequireAuth_ExpiredCookieRefreshes(t *testing.T) {
	uid := uuid.New()
	exp := time.Now().Add(15 * time.Minute)
	ref := &fakeRefresher{pair: tokens.Pair{
		AccessToken:  sign(t, uid, tokens.RoleUser, exp),
		RefreshToken: "new-refresh",
		AccessExp:    exp,
		RefreshExp:   time.Now().Add(time.Hour),
	}}
	m := NewAutoRefreshMiddleware(secret, ref)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: sign(t, uid, tokens.RoleUser, time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old-refresh"})

	rec, id, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)
	assert.Equal(t, 1, ref.calls)

	var names []string
	for _, ck := range rec.Result().Cookies() {
		names = append(names, ck.Name)
	}
	assert.ElementsMatch(t, []string{tokens.AccessCookie, tokens.RefreshCookie}, names)
}

func TestRequireAuth_RefreshFailureClearsCookies(t *testing.T) {
	ref := &fakeRefresher{err: errors.New("revoked")}
	m := NewAutoRefreshMiddleware(secret, ref)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: sign(t, uuid.New(), tokens.RoleUser, time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "old-refresh"})

	rec, _, err := run(t, m.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
	for _, ck := range rec.Result().Cookies() {
		assert.Equal(t, -1, ck.MaxAge)
	}
}

func TestRequireAuth_ExpiredBearerDoesNotRefresh(t *testing.T) {
	ref := &fakeRefresher{}
	m := NewAutoRefreshMiddleware(secret, ref)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, uuid.New(), tokens.RoleUser, time.Now().Add(-time.Minute)))

	_, _, err := run(t, m.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
	assert.Zero(t, ref.calls)
}
