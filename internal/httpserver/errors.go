package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/domain"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

// statusOf maps a domain error onto an HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under event and converts it into an echo HTTP error. Client
// errors carry the domain message; server errors are logged at error level
// and hidden behind a generic message.
func fail(l *slog.Logger, event string, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
		return echo.NewHTTPError(status, "internal error")
	}
	l.Warn(event, "status", status, "error", err)
	return echo.NewHTTPError(status, err.Error())
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

func uuidParam(c echo.Context, l *slog.Logger, name, event string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest(l, event, name+" is not a uuid", err)
	}
	return id, nil
}

func identity(c echo.Context, l *slog.Logger, event string) (tokens.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		l.Warn(event, "status", http.StatusUnauthorized, "reason", "no identity on request")
		return tokens.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
