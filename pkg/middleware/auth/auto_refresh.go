package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const identityKey = "identity"

// TokenRefresher rotates a refresh token into a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error)
}

type AutoRefreshMiddleware struct {
	JWTSecret []byte
	Refresher TokenRefresher
}

func NewAutoRefreshMiddleware(secret []byte, refresher TokenRefresher) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret: secret,
		Refresher: refresher,
	}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AutoRefreshMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != tokens.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "auth")

		access, fromCookie := accessToken(c)
		if access == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(access, m.JWTSecret)
		if err == nil {
			return m.admit(c, next, claims, validator)
		}

		// bearer callers manage their own tokens
		if !errors.Is(err, jwt.ErrTokenExpired) || !fromCookie || m.Refresher == nil {
			if fromCookie {
				clearAuthCookies(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		refreshCookie, rErr := c.Cookie(tokens.RefreshCookie)
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
		}

		pair, refErr := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
		if refErr != nil {
			l.Info("auto_refresh_failed", "error", refErr)
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh failed")
		}

		c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
		c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))

		newClaims, pErr := tokens.AccessClaimsFromToken(pair.AccessToken, m.JWTSecret)
		if pErr != nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
		}
		l.Debug("auto_refresh_ok", "user_id", newClaims.Subject)

		return m.admit(c, next, newClaims, validator)
	}
}

func (m *AutoRefreshMiddleware) admit(c echo.Context, next echo.HandlerFunc, claims *tokens.AccessClaims, validator ValidatorFunc) error {
	if validator != nil {
		if err := validator(claims); err != nil {
			return err
		}
	}
	id, err := claims.Identity()
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}
	c.Set(identityKey, id)

	ctx := logging.IntoContext(c.Request().Context(),
		logging.FromContext(c.Request().Context()).With("user_id", id.UserID.String()))
	c.SetRequest(c.Request().WithContext(ctx))
	return next(c)
}

// accessToken prefers the cookie and falls back to an Authorization bearer header.
func accessToken(c echo.Context) (string, bool) {
	if ck, err := c.Cookie(tokens.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after), false
	}
	return "", false
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}

// IdentityFrom returns the identity stored by RequireAuth or RequireAdmin.
func IdentityFrom(c echo.Context) (tokens.Identity, bool) {
	id, ok := c.Get(identityKey).(tokens.Identity)
	return id, ok
}
