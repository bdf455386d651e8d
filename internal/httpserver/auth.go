package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func userResponse(u *models.User) transport.UserResponse {
	return transport.UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin()}
}

func setAuthCookies(c echo.Context, pair tokens.Pair) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))
}

func tokenResponse(pair tokens.Pair, isAdmin bool) transport.TokenResponse {
	return transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessExp:    pair.AccessExp.Unix(),
		RefreshExp:   pair.RefreshExp.Unix(),
		IsAdmin:      isAdmin,
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_failed", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_failed", err)
	}

	l.Info("register_success", "user_id", user.ID.String())
	return c.JSON(http.StatusCreated, userResponse(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_failed", "invalid body", err)
	}

	pair, user, err := h.Svc.Login(ctx, req.Login, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	setAuthCookies(c, pair)
	l.Info("login_success", "user_id", user.ID.String())
	return c.JSON(http.StatusOK, tokenResponse(pair, user.IsAdmin()))
}

// Refresh takes the refresh token from its cookie or, failing that, from the
// refresh_token field of the body.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	refresh := ""
	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		refresh = ck.Value
	}
	if refresh == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.Bind(&body)
		refresh = body.RefreshToken
	}
	if refresh == "" {
		l.Warn("refresh_failed", "status", http.StatusUnauthorized, "reason", "no refresh token")
		return echo.NewHTTPError(http.StatusUnauthorized, "no refresh token")
	}

	pair, err := h.Svc.Refresh(ctx, refresh)
	if err != nil {
		return fail(l, "refresh_failed", err)
	}
	id, err := h.Svc.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		return fail(l, "refresh_failed", err)
	}

	setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, tokenResponse(pair, id.IsAdmin))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Svc.Logout(ctx, ck.Value); err != nil {
			return fail(l, "logout_failed", err)
		}
	}

	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
	l.Info("logout_success")
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	who, err := identity(c, l, "me_failed")
	if err != nil {
		return err
	}
	user, err := h.Svc.Me(ctx, who)
	if err != nil {
		return fail(l, "me_failed", err)
	}
	return c.JSON(http.StatusOK, userResponse(user))
}
