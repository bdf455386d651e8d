package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	return page, offset, limit
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_categories")

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "list_categories_failed", err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_category")

	id, err := uuidParam(c, l, "id", "get_category_failed")
	if err != nil {
		return err
	}
	cat, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category_failed", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_category")

	who, err := identity(c, l, "create_category_failed")
	if err != nil {
		return err
	}
	var req transport.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category_failed", "invalid body", err)
	}

	cat, err := h.Svc.CreateCategory(ctx, who, req.Name)
	if err != nil {
		return fail(l, "create_category_failed", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_category")

	who, err := identity(c, l, "delete_category_failed")
	if err != nil {
		return err
	}
	id, err := uuidParam(c, l, "id", "delete_category_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteCategory(ctx, who, id); err != nil {
		return fail(l, "delete_category_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	id, err := uuidParam(c, l, "id", "get_product_failed")
	if err != nil {
		return err
	}
	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, product)
}

// GetProducts lists products, optionally narrowed by ?category_id=.
func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_products")

	var categoryID *uuid.UUID
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(l, "get_products_failed", "category_id is not a uuid", err)
		}
		categoryID = &id
	}

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.GetProducts(ctx, categoryID, offset, limit)
	if err != nil {
		return fail(l, "get_products_failed", err)
	}

	l.Debug("get_products_success", "total", total)
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search_products")

	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_failed", "status", http.StatusBadRequest, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.SearchProducts(ctx, q, offset, limit)
	if err != nil {
		return fail(l, "search_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, limit, total),
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_product")

	who, err := identity(c, l, "create_product_failed")
	if err != nil {
		return err
	}
	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_failed", "invalid body", err)
	}

	prod, err := h.Svc.CreateProduct(ctx, who, req)
	if err != nil {
		return fail(l, "create_product_failed", err)
	}

	l.Info("create_product_success", "product_id", prod.ID.String())
	return c.JSON(http.StatusCreated, prod)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_product")

	who, err := identity(c, l, "patch_product_failed")
	if err != nil {
		return err
	}
	id, err := uuidParam(c, l, "id", "patch_product_failed")
	if err != nil {
		return err
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_product_failed", "invalid body", err)
	}

	prod, err := h.Svc.PatchProduct(ctx, who, req, id)
	if err != nil {
		return fail(l, "patch_product_failed", err)
	}

	l.Info("patch_product_success", "product_id", prod.ID.String())
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_product")

	who, err := identity(c, l, "delete_product_failed")
	if err != nil {
		return err
	}
	id, err := uuidParam(c, l, "id", "delete_product_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteProduct(ctx, who, id); err != nil {
		return fail(l, "delete_product_failed", err)
	}

	l.Info("delete_product_success", "product_id", id.String())
	return c.NoContent(http.StatusNoContent)
}
