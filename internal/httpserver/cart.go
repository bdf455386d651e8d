package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	who, err := identity(c, l, "get_cart_failed")
	if err != nil {
		return err
	}
	cart, err := h.Svc.GetCart(ctx, who.UserID)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) CreateCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.create_cart")

	who, err := identity(c, l, "create_cart_failed")
	if err != nil {
		return err
	}
	cart, err := h.Svc.CreateCart(ctx, who.UserID)
	if err != nil {
		return fail(l, "create_cart_failed", err)
	}

	l.Info("create_cart_success", "cart_id", cart.ID.String())
	return c.JSON(http.StatusCreated, cart)
}

func (h *CartHTTP) RemoveCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_cart")

	who, err := identity(c, l, "remove_cart_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.RemoveCart(ctx, who.UserID); err != nil {
		return fail(l, "remove_cart_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.list_items")

	who, err := identity(c, l, "list_items_failed")
	if err != nil {
		return err
	}
	items, err := h.Svc.ListItems(ctx, who.UserID)
	if err != nil {
		return fail(l, "list_items_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	who, err := identity(c, l, "add_item_failed")
	if err != nil {
		return err
	}
	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_failed", "invalid body", err)
	}

	item, err := h.Svc.AddItem(ctx, who.UserID, req)
	if err != nil {
		return fail(l, "add_item_failed", err)
	}

	l.Info("add_item_success", "item_id", item.ID.String(), "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	who, err := identity(c, l, "update_item_failed")
	if err != nil {
		return err
	}
	itemID, err := uuidParam(c, l, "id", "update_item_failed")
	if err != nil {
		return err
	}
	var req transport.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_failed", "invalid body", err)
	}

	item, err := h.Svc.UpdateItem(ctx, who.UserID, itemID, req.Quantity)
	if err != nil {
		return fail(l, "update_item_failed", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	who, err := identity(c, l, "remove_item_failed")
	if err != nil {
		return err
	}
	itemID, err := uuidParam(c, l, "id", "remove_item_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.RemoveItem(ctx, who.UserID, itemID); err != nil {
		return fail(l, "remove_item_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
