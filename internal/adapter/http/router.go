// Package http is the echo transport over the application services: the
// cashier register, the order lifecycle, the live SSE streams, the product
// catalogue, and the sales statistics.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/exflikt/murchace/internal/app/live"
	"github.com/exflikt/murchace/internal/app/orders"
	"github.com/exflikt/murchace/internal/app/register"
	"github.com/exflikt/murchace/internal/app/stat"
	"github.com/exflikt/murchace/internal/interfaces"
)

type RouterDeps struct {
	Register *register.Service
	Orders   *orders.Service
	Live     *live.Service
	Products interfaces.ProductRepository
	Stat     *stat.Service
	Logger   zerolog.Logger
}

func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(deps.Logger))

	registerHandler := NewRegisterHandler(deps.Register, deps.Logger)
	e.GET("/register", registerHandler.Current)
	e.POST("/register", registerHandler.PlaceOrder)
	e.POST("/register/items", registerHandler.AddItem)
	e.DELETE("/register/items/:item_id", registerHandler.RemoveItem)
	e.DELETE("/register/items", registerHandler.ClearItems)

	ordersHandler := NewOrdersHandler(deps.Orders, deps.Live, deps.Logger)
	e.GET("/orders/incoming", ordersHandler.Incoming)
	e.GET("/orders/resolved", ordersHandler.Resolved)
	e.POST("/orders/:id/products/:product_id/supplied-at", ordersHandler.Supply)
	e.POST("/orders/:id/completed-at", ordersHandler.Complete)
	e.POST("/orders/:id/canceled-at", ordersHandler.Cancel)
	e.DELETE("/orders/:id/resolved-at", ordersHandler.Reset)

	streamHandler := NewStreamHandler(deps.Orders, deps.Live, deps.Logger)
	e.GET("/orders/incoming-stream", streamHandler.IncomingOrders)
	e.GET("/ordered-items/incoming-stream", streamHandler.IncomingItems)
	e.GET("/wait-estimates-stream", streamHandler.WaitEstimates)

	productsHandler := NewProductsHandler(deps.Products, deps.Logger)
	e.GET("/products", productsHandler.List)
	e.GET("/products/:id", productsHandler.Get)
	e.POST("/products", productsHandler.Create)
	e.PUT("/products/:id", productsHandler.Update)
	e.DELETE("/products/:id", productsHandler.Delete)

	statHandler := NewStatHandler(deps.Stat)
	e.GET("/stat", statHandler.Summary)
	e.GET("/stat/orders.csv", statHandler.ExportCSV)

	return e
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	})
}
