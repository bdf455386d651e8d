package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func TestRequestLogger_InjectsLoggerAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "info")

	e := echo.New()
	e.Use(RequestLogger(base))
	e.GET("/ping", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "inside", lines[0]["msg"])
	assert.Equal(t, "rid-1", lines[0]["request_id"])
	assert.Equal(t, "INFO", lines[1]["level"])
	assert.EqualValues(t, 200, lines[1]["status"])
	assert.Equal(t, "WARN", lines[2]["level"])
	assert.EqualValues(t, 404, lines[2]["status"])
}

func TestRequestLogger_RecordsCaller(t *testing.T) {
	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "info")
	secret := []byte("log-test-secret")
	userID := uuid.New()

	e := echo.New()
	e.Use(RequestLogger(base))
	authMW := middleware.NewAutoRefreshMiddleware(secret, nil)
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, authMW.RequireAuth)

	tok, err := tokens.SignAccessToken(userID, tokens.RoleAdmin, time.Now().Add(time.Minute), secret)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, userID.String(), lines[0]["user_id"])
	assert.Equal(t, true, lines[0]["admin"])
	assert.Equal(t, "/me", lines[0]["route"])
	assert.NotContains(t, lines[1], "user_id")
	assert.EqualValues(t, 401, lines[1]["status"])
}
