package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

// RequestLogger puts a request-scoped logger into the context and writes one
// "request completed" line per request. The line carries the caller's
// identity when an auth middleware further down admitted the request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := base.With(requestAttrs(c)...)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			completed(c, l, time.Since(start), err)
			return nil
		}
	}
}

func requestAttrs(c echo.Context) []any {
	req := c.Request()
	attrs := []any{
		"method", req.Method,
		"route", c.Path(),
		"path", req.URL.Path,
		"remote_ip", c.RealIP(),
	}

	rid := req.Header.Get(echo.HeaderXRequestID)
	if rid == "" {
		rid = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	if rid != "" {
		attrs = append(attrs, "request_id", rid)
		c.Response().Header().Set(echo.HeaderXRequestID, rid)
	}
	return attrs
}

func completed(c echo.Context, l *slog.Logger, dur time.Duration, err error) {
	status := c.Response().Status
	attrs := []any{"status", status, "duration_ms", dur.Milliseconds()}
	if id, ok := middleware.IdentityFrom(c); ok {
		attrs = append(attrs, "user_id", id.UserID.String(), "admin", id.IsAdmin)
	}

	switch {
	case status >= 500:
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		l.Error("request completed", attrs...)
	case status >= 400:
		l.Warn("request completed", attrs...)
	default:
		l.Info("request completed", append(attrs, "bytes", c.Response().Size)...)
	}
}
