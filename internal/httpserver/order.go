package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHTTP struct {
	Svc *service.OrderService
}

// Checkout answers 201 for a new order and 200 when an earlier order is
// replayed for the same Idempotency-Key.
func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	who, err := identity(c, l, "checkout_failed")
	if err != nil {
		return err
	}
	order, replayed, err := h.Svc.Checkout(ctx, who.UserID, c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return fail(l, "checkout_failed", err)
	}

	if replayed {
		return c.JSON(http.StatusOK, order)
	}
	l.Info("checkout_success", "order_id", order.ID.String())
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	who, err := identity(c, l, "list_orders_failed")
	if err != nil {
		return err
	}
	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListOrders(ctx, who.UserID, offset, limit)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	who, err := identity(c, l, "get_order_failed")
	if err != nil {
		return err
	}
	id, err := uuidParam(c, l, "id", "get_order_failed")
	if err != nil {
		return err
	}
	order, err := h.Svc.GetOrder(ctx, who, id)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	who, err := identity(c, l, "cancel_order_failed")
	if err != nil {
		return err
	}
	id, err := uuidParam(c, l, "id", "cancel_order_failed")
	if err != nil {
		return err
	}
	order, err := h.Svc.CancelOrder(ctx, who.UserID, id)
	if err != nil {
		return fail(l, "cancel_order_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListAllOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_all_orders")

	who, err := identity(c, l, "list_all_orders_failed")
	if err != nil {
		return err
	}
	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListAllOrders(ctx, who, c.QueryParam("status"), offset, limit)
	if err != nil {
		return fail(l, "list_all_orders_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *OrderHTTP) AdvanceStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.advance_status")

	who, err := identity(c, l, "advance_status_failed")
	if err != nil {
		return err
	}
	id, err := uuidParam(c, l, "id", "advance_status_failed")
	if err != nil {
		return err
	}
	var req transport.AdvanceStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "advance_status_failed", "invalid body", err)
	}

	order, err := h.Svc.AdvanceStatus(ctx, who, id, req.Status)
	if err != nil {
		return fail(l, "advance_status_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}
