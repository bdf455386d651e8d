package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	JWTSecret      []byte
	Refresher      middleware.TokenRefresher
	DB             *gorm.DB
}

// requestIDToEvents stamps the request id onto the context so published
// events can be correlated with the request that caused them.
func requestIDToEvents(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Request().Header.Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = c.Response().Header().Get(echo.HeaderXRequestID)
		}
		if rid != "" {
			c.SetRequest(c.Request().WithContext(events.WithRequestID(c.Request().Context(), rid)))
		}
		return next(c)
	}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"db": err.Error()})
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher)

	api := e.Group("/api/v1", requestIDToEvents, csrf.Middleware(csrf.Config{
		SessionCookies: []string{tokens.AccessCookie, tokens.RefreshCookie},
	}))

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	api.GET("/users/me", d.AuthHandler.Me, authMW.RequireAuth)

	api.GET("/categories", d.CatalogHandler.ListCategories)
	api.GET("/categories/:id", d.CatalogHandler.GetCategory)
	api.GET("/products", d.CatalogHandler.GetProducts)
	api.GET("/products/search", d.CatalogHandler.SearchProducts)
	api.GET("/products/:id", d.CatalogHandler.GetProduct)

	cart := api.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.CreateCart)
	cart.DELETE("", d.CartHandler.RemoveCart)
	cart.GET("/items", d.CartHandler.ListItems)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PATCH("/items/:id", d.CartHandler.UpdateItem)
	cart.DELETE("/items/:id", d.CartHandler.RemoveItem)

	orders := api.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)

	admin := api.Group("/admin", authMW.RequireAdmin)
	admin.POST("/categories", d.CatalogHandler.CreateCategory)
	admin.DELETE("/categories/:id", d.CatalogHandler.DeleteCategory)
	admin.POST("/products", d.CatalogHandler.CreateProduct)
	admin.PATCH("/products/:id", d.CatalogHandler.PatchProduct)
	admin.DELETE("/products/:id", d.CatalogHandler.DeleteProduct)
	admin.GET("/orders", d.OrderHandler.ListAllOrders)
	admin.GET("/orders/:id", d.OrderHandler.GetOrder)
	admin.PATCH("/orders/:id/status", d.OrderHandler.AdvanceStatus)
}
