package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		domain.ErrValidation:        http.StatusBadRequest,
		domain.ErrUnauthorized:      http.StatusUnauthorized,
		domain.ErrForbidden:         http.StatusForbidden,
		domain.ErrNotFound:          http.StatusNotFound,
		domain.ErrConflict:          http.StatusConflict,
		domain.ErrInsufficientStock: http.StatusConflict,
		domain.ErrInvalidState:      http.StatusUnprocessableEntity,
		domain.ErrInvalidTransition: http.StatusUnprocessableEntity,
		errors.New("boom"):          http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusOf(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	l := logging.NewWithWriter(io.Discard, "error")

	var he *echo.HTTPError
	require.ErrorAs(t, fail(l, "x", errors.New("pq: connection refused")), &he)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, "internal error", he.Message)

	require.ErrorAs(t, fail(l, "x", fmt.Errorf("cart: %w", domain.ErrNotFound)), &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
